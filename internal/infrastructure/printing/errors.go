package printing

import "fmt"

// RenderStage names the step of receipt rendering that failed
type RenderStage string

const (
	StageEmpty  RenderStage = "empty_document"
	StageFont   RenderStage = "font"
	StageDraw   RenderStage = "draw"
	StageOutput RenderStage = "output"
)

// RenderError is returned by PDFRenderer.Render and LoadFontFace
type RenderError struct {
	Stage  RenderStage
	Detail string
	Err    error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("render receipt (%s)", e.Stage)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error { return e.Err }

func renderError(stage RenderStage, detail string, err error) *RenderError {
	return &RenderError{Stage: stage, Detail: detail, Err: err}
}
