package ir

// Module is a translation unit: an ordered list of functions.
type Module struct {
	Name  string
	Funcs []*Func
}

// FuncByName returns the first function with the given name, or nil.
func (m *Module) FuncByName(name string) *Func {
	if m == nil {
		return nil
	}
	for _, f := range m.Funcs {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}
