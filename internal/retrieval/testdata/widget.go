package testdata

// Widget is a fixture type used by retrieval package tests.
type Widget struct {
	Name string
}

// Render renders the widget.
func Render(w Widget) string {
	return w.Name
}
