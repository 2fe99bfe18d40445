package common

//go:generate go run github.com/dmarkham/enumer -json -sql -type TaskState -trimprefix State

// TaskState is the state of an ingestion task, as reported by the catalog service
type TaskState int

const (
	StatePENDING TaskState = iota
	StateRUNNING
	StateCOMPLETED
	StateFAILED
	StateCANCELLED
)

// Terminal returns true if no transition can occur after this state
func (s TaskState) Terminal() bool {
	switch s {
	case StateCOMPLETED, StateFAILED, StateCANCELLED:
		return true
	}
	return false
}

// Failed returns true for the terminal states that are not a success
func (s TaskState) Failed() bool {
	return s == StateFAILED || s == StateCANCELLED
}

func (s TaskState) Color() string {
	switch s {
	case StatePENDING:
		return "gray"
	case StateRUNNING:
		return "blue"
	case StateCOMPLETED:
		return "green"
	case StateFAILED:
		return "red"
	case StateCANCELLED:
		return "orange"
	}
	return "white"
}

//go:generate go run github.com/dmarkham/enumer -json -type AssetType -trimprefix AssetType -transform snake-upper

// AssetType is the type of an asset of the catalog
type AssetType int

const (
	AssetTypeUnknown AssetType = iota
	AssetTypeFolder
	AssetTypeImageCollection
	AssetTypeImage
	AssetTypeTable
)

// Container returns true if the asset may have children
func (t AssetType) Container() bool {
	return t == AssetTypeFolder || t == AssetTypeImageCollection
}
