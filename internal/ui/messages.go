package ui

import (
	"vidgrab/internal/pipeline"
	"vidgrab/internal/progress"
)

type inspectedMsg struct {
	In  pipeline.Inspection
	Err error
}

type jobUpdateMsg struct {
	U progress.Update
}

type jobLogMsg struct {
	L progress.Log
}

type jobResultMsg struct {
	R progress.Result
}
