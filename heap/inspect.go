package heap

import (
	"fmt"

	s "github.com/bnclabs/gosettings"

	"github.com/joshuapare/flexheap/heap/alloc"
	"github.com/joshuapare/flexheap/internal/mmfile"
)

// Report describes a heap file examined by Inspect.
type Report struct {
	File     string      `json:"file"`
	Capacity int         `json:"capacity"`
	Usage    alloc.Usage `json:"usage"`
	Err      error       `json:"-"` // result of the integrity walk
}

// Inspect maps the heap file at path read-only, rebuilds its free lists
// and walks every cell. The file is never written. An error is returned
// when the file cannot be read or holds no heap; a failed integrity walk
// is reported in Report.Err.
func Inspect(path string, setts s.Settings) (Report, error) {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	config, err := alloc.ConfigByName(setts.String("sizeclass"))
	if err != nil {
		return Report{}, err
	}

	m, err := mmfile.Map(path)
	if err != nil {
		return Report{}, fmt.Errorf("heap: inspect %s: %w", path, err)
	}
	defer m.Close()

	fa := alloc.NewFast(m, config)
	if err := fa.Attach(); err != nil {
		return Report{}, fmt.Errorf("heap: inspect %s: %w", path, err)
	}
	return Report{
		File:     path,
		Capacity: len(m.Bytes()),
		Usage:    fa.Usage(),
		Err:      fa.Verify(),
	}, nil
}
