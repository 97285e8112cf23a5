package generate

import "github.com/jptrs93/protogen/internal/ir"

type OutputFile struct {
	Path    string
	Content []byte
}

type Options struct {
	// OutDir is joined with every relative output path.
	OutDir string
}

type Generator interface {
	Name() string
	Generate(def *ir.ProtoDef, options Options) ([]OutputFile, error)
}
