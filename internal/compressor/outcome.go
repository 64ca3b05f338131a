package compressor

import "fmt"

// Outcome reports the fate of one dispatched file. Exactly one Outcome is
// produced per job, in completion order. Err is nil on success.
type Outcome struct {
	SourcePath string
	DestPath   string
	Err        error
}

// Failed reports whether the job ended in a per-file failure.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// String renders the outcome for plain-text consumers.
func (o Outcome) String() string {
	if o.Failed() {
		return fmt.Sprintf("failed %s: %v", o.SourcePath, o.Err)
	}
	return fmt.Sprintf("compressed %s -> %s", o.SourcePath, o.DestPath)
}
