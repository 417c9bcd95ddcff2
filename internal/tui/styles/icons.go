package styles

const (
	PerchIcon string = "⌖"

	CheckIcon   string = "✓"
	ErrorIcon   string = "✖"
	WarningIcon string = "⚠"
	InfoIcon    string = "ℹ"
	SpinnerIcon string = "..."
	LoadingIcon string = "⟳"
)
