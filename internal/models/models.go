package models

// AppState holds the application state
type AppState struct {
	Width    int
	Height   int
	ViewMode ViewMode

	// Name of the database being browsed, shown in the top bar
	DatabaseName string
}

// ViewMode identifies the current view
type ViewMode int

const (
	NormalMode ViewMode = iota
	HelpMode
	FilterMode
	SortMode
	ViewsMode
	DetailMode
)

// NewAppState creates a new AppState with defaults
func NewAppState() AppState {
	return AppState{
		Width:    80,
		Height:   24,
		ViewMode: NormalMode,
	}
}

// QueryParams is what the table view asks the query service for
type QueryParams struct {
	Filter *WireFilter
	Sorts  []SortEntry
}
