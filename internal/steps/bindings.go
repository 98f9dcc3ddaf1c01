package steps

import (
	"fmt"
	"sort"
	"strings"

	"loom/internal/catalog"
)

// DefaultBindings maps each step name to the remote function that performs it.
func DefaultBindings() map[string]string {
	return map[string]string{
		"Download Image":       "downloadImagesToDrive",
		"Create Thumbnail":     "copyResizeImageAndStoreUrl",
		"Describe Image":       "processImagesWithOpenAI",
		"Add Mockups":          "updateImagesFromMockupFolders",
		"Upscale Image":        "copyUpscaleImageAndStoreVariants",
		"Generate Mockup JSON": "generateMockupJson",
		"Upload Files":         "uploadDigitalFiles",
		"Upload Images":        "uploadImageAssets",
		"Vectorize":            "vectorizeSourceSvg",
		"Create Description":   "findReplaceInDescription",
		"Create Folder":        "processCreateFolders",
		"Rename Files":         "updateFileNamesWithImageName",
		"Move Files":           "moveFilesAndImagesToFolder",
		"Generate Mockups":     "generateMockupsFromDrive",
		"Create JSON":          "buildMockupJsonFromFolderStructure",
		"Create PDF":           "processCreatePDF",
	}
}

// Bindings is the validated step-to-function table.
type Bindings struct {
	functions map[string]string
}

// NewBindings builds a binding table from the supplied mapping.
func NewBindings(functions map[string]string) *Bindings {
	cleaned := make(map[string]string, len(functions))
	for step, fn := range functions {
		step = strings.TrimSpace(step)
		fn = strings.TrimSpace(fn)
		if step == "" || fn == "" {
			continue
		}
		cleaned[step] = fn
	}
	return &Bindings{functions: cleaned}
}

// FunctionFor returns the remote function bound to a step.
func (b *Bindings) FunctionFor(step string) (string, bool) {
	fn, ok := b.functions[strings.TrimSpace(step)]
	return fn, ok
}

// Steps returns the bound step names in sorted order.
func (b *Bindings) Steps() []string {
	names := make([]string, 0, len(b.functions))
	for step := range b.functions {
		names = append(names, step)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every step reachable from the catalog has a binding.
// A missing binding is a startup-time configuration error.
func (b *Bindings) Validate(cat *catalog.Catalog) error {
	var missing []string
	for _, step := range cat.AllSteps() {
		if _, ok := b.FunctionFor(step); !ok {
			missing = append(missing, step)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("steps without executor bindings: %s", strings.Join(missing, ", "))
	}
	return nil
}
