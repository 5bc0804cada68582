package record

// SeedModules returns the built-in starter text modules used to populate
// an empty modules collection on first load. Each call assigns fresh ids
// and current timestamps.
func SeedModules() []*Module {
	return []*Module{
		NewModule("Beispiel", "Das ist ein Beispiel Text."),
	}
}
