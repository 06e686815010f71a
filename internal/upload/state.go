package upload

// State is a step of the upload state machine.
type State int

// Upload states. Failed is reachable from every non-terminal state.
const (
	Idle State = iota
	Validating
	UploadingBlob
	ResolvingURL
	InsertingRecord
	InsertingTags
	Complete
	Failed
)

var stateNames = [...]string{
	Idle:            "idle",
	Validating:      "validating",
	UploadingBlob:   "uploading_blob",
	ResolvingURL:    "resolving_url",
	InsertingRecord: "inserting_record",
	InsertingTags:   "inserting_tags",
	Complete:        "complete",
	Failed:          "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends the upload.
func (s State) Terminal() bool { return s == Complete || s == Failed }

// next lists the forward transition of every non-terminal state.
var next = map[State]State{
	Idle:            Validating,
	Validating:      UploadingBlob,
	UploadingBlob:   ResolvingURL,
	ResolvingURL:    InsertingRecord,
	InsertingRecord: InsertingTags,
	InsertingTags:   Complete,
}

// CanMove reports whether from -> to is a legal transition.
func CanMove(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Failed {
		return true
	}
	return next[from] == to
}

// Transition is reported to the transition hook on every state change.
type Transition struct {
	Token string
	From  State
	To    State
	Err   error // set when To == Failed
}
