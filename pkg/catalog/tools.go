package catalog

import "github.com/google/jsonschema-go/jsonschema"

// Built-in tool names.
const (
	ToolDisplayColorPalette  = "display_color_palette"
	ToolForeignWorkerEnquiry = "foreign_worker_enquiry"
)

// PaletteSize is the number of colors a palette call must carry.
const PaletteSize = 5

// HexColorPattern matches #rgb and #rrggbb codes.
const HexColorPattern = `^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`

// DisplayColorPalette renders a themed palette locally.
func DisplayColorPalette() Declaration {
	return Declaration{
		Name:        ToolDisplayColorPalette,
		Description: "Call this function when a user asks for a color palette.",
		Parameters: strictObject(map[string]*jsonschema.Schema{
			"theme": {
				Type:        "string",
				Description: "Description of the theme for the color scheme.",
			},
			"colors": {
				Type:        "array",
				Description: "Array of five hex color codes based on the theme.",
				Items: &jsonschema.Schema{
					Type:        "string",
					Description: "Hex color code",
					Pattern:     HexColorPattern,
				},
				MinItems: intPtr(PaletteSize),
				MaxItems: intPtr(PaletteSize),
			},
		}, "theme", "colors"),
	}
}

// ForeignWorkerEnquiry forwards a question to the remote prediction service.
func ForeignWorkerEnquiry() Declaration {
	return Declaration{
		Name: ToolForeignWorkerEnquiry,
		Description: "Call this function when the user asks about hiring, employing or managing " +
			"foreign workers, work passes, levies or related regulations.",
		Parameters: strictObject(map[string]*jsonschema.Schema{
			"question": {
				Type:        "string",
				Description: "The user's question, restated as a complete sentence.",
			},
			"sessionId": {
				Type:        "string",
				Description: "Identifier that keeps follow-up questions in the same remote conversation.",
			},
		}, "question", "sessionId"),
	}
}

// Default returns the catalog of built-in tools.
func Default() *Catalog {
	return MustNew(DisplayColorPalette(), ForeignWorkerEnquiry())
}

// strictObject builds an object schema that requires the listed fields and
// rejects undeclared ones.
func strictObject(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

func intPtr(n int) *int { return &n }
