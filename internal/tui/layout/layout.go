package layout

import (
	"reflect"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Sizeable is implemented by pages that need to know their render area.
type Sizeable interface {
	SetSize(width, height int) tea.Cmd
}

// Bindings is implemented by pages that contribute help entries.
type Bindings interface {
	BindingKeys() []key.Binding
}

// KeyMapToSlice flattens a struct of key.Binding fields into a slice.
func KeyMapToSlice(t any) (bindings []key.Binding) {
	typ := reflect.TypeOf(t)
	if typ.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < typ.NumField(); i++ {
		v := reflect.ValueOf(t).Field(i)
		if v.Type() == reflect.TypeOf(key.Binding{}) {
			bindings = append(bindings, v.Interface().(key.Binding))
		}
	}
	return
}
