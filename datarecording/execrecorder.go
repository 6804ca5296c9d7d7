package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTable = "exec_info"

// ExecInfo is one property of the program execution.
type ExecInfo struct {
	Property string
	Value    string
}

const execTimeFormat = "2006-01-02 15:04:05.000000000"

// execRecorder records how the program was run.
type execRecorder struct {
	recorder Recorder
	entries  []ExecInfo
}

func newExecRecorder(recorder Recorder) (*execRecorder, error) {
	e := &execRecorder{recorder: recorder}

	if err := recorder.CreateTable(execTable, ExecInfo{}); err != nil {
		return nil, err
	}

	return e, nil
}

// Start notes the start time, the command and the working directory.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", time.Now().Format(execTimeFormat)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	if cwd, err := os.Getwd(); err == nil {
		e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
	}
}

// End writes the entries noted along with the end time.
func (e *execRecorder) End() error {
	e.entries = append(e.entries,
		ExecInfo{"End Time", time.Now().Format(execTimeFormat)})

	for _, entry := range e.entries {
		if err := e.recorder.InsertData(execTable, entry); err != nil {
			return err
		}
	}

	e.entries = nil

	return e.recorder.Flush()
}
