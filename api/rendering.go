package api

/*
	This file contains functionality related to rendering responses
*/

import (
	"github.com/unrolled/render"
)

// Render is the render.Render object used by all handlers. The registry
// protocol is JSON-only; the indented output matches what browsers have
// always received from the service.
var Render *render.Render

// BuildRender builds Render
func BuildRender() {
	Render = render.New(render.Options{
		IndentJSON: true,
	})
}

func init() {
	BuildRender()
}
