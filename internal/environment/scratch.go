package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Variables exported by every scratch environment
const (
	VarEnvironment = "ENVRUN_ENVIRONMENT"
	VarEnvDir      = "ENVRUN_ENV_DIR"
	VarOptions     = "ENVRUN_ENVIRONMENT_OPTIONS"
	VarOptPrefix   = "ENVRUN_OPT_"
)

// ScratchProvider serves built-in and plain custom environments. Each
// acquisition gets a private scratch directory that is removed on teardown.
type ScratchProvider struct {
	fs   afero.Fs
	root string
}

// NewScratchProvider creates scratch directories under root on fs. An empty
// root means the system temp directory.
func NewScratchProvider(fs afero.Fs, root string) *ScratchProvider {
	return &ScratchProvider{fs: fs, root: root}
}

// Setup creates the scratch directory and computes the exported variables.
func (p *ScratchProvider) Setup(ctx context.Context, name string, opts Options) (Environment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vars, err := optionVars(opts)
	if err != nil {
		return nil, err
	}

	dir, err := afero.TempDir(p.fs, p.root, "envrun-"+name+"-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	vars[VarEnvironment] = name
	vars[VarEnvDir] = dir
	vars["TMPDIR"] = dir

	return &scratchEnv{name: name, dir: dir, fs: p.fs, vars: vars}, nil
}

type scratchEnv struct {
	name string
	dir  string
	fs   afero.Fs
	vars map[string]string
}

func (e *scratchEnv) Name() string { return e.name }

func (e *scratchEnv) Vars() map[string]string {
	out := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

func (e *scratchEnv) Teardown(context.Context) error {
	if err := e.fs.RemoveAll(e.dir); err != nil {
		return fmt.Errorf("remove scratch dir: %w", err)
	}
	return nil
}

// optionVars exports the whole option set as JSON plus one variable per
// top-level key, e.g. {"url": "x"} becomes ENVRUN_OPT_URL=x.
func optionVars(opts Options) (map[string]string, error) {
	vars := make(map[string]string, len(opts)+4)
	if opts == nil {
		opts = Options{}
	}

	data, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encode environment options: %w", err)
	}
	vars[VarOptions] = string(data)

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var value string
		switch v := opts[k].(type) {
		case string:
			value = v
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode environment option %q: %w", k, err)
			}
			value = string(encoded)
		}
		vars[VarOptPrefix+envKey(k)] = value
	}
	return vars, nil
}

func envKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			return r
		default:
			return '_'
		}
	}, k)
}
