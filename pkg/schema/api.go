package schema

// ParseRequest is the body accepted by POST /parse.
type ParseRequest struct {
	Code string `json:"code"`
}

// ParseResponse is the body returned by POST /parse. Mermaid always holds a
// diagram, the degraded error diagram included.
type ParseResponse struct {
	Mermaid string `json:"mermaid"`
}

// RenderFormat names an output format of the render endpoint.
type RenderFormat string

const (
	FormatMermaid RenderFormat = "mermaid"
	FormatDOT     RenderFormat = "dot"
	FormatSVG     RenderFormat = "svg"
	FormatPNG     RenderFormat = "png"
	FormatASCII   RenderFormat = "ascii"
)

// RenderFormats lists every supported format.
var RenderFormats = []RenderFormat{FormatMermaid, FormatDOT, FormatSVG, FormatPNG, FormatASCII}

// Valid reports whether f is a supported format.
func (f RenderFormat) Valid() bool {
	for _, known := range RenderFormats {
		if f == known {
			return true
		}
	}
	return false
}

// ContentType returns the HTTP content type for the format.
func (f RenderFormat) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// RenderRequest is the body accepted by POST /render.
type RenderRequest struct {
	Code   string       `json:"code"`
	Format RenderFormat `json:"format,omitempty"`
}
