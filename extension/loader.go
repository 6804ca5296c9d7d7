// Package extension loads Lua modules that subscribe hooks to the entry
// points of a simulation context.
//
// A module is a Lua file listed under the extensions key of the
// configuration. While it loads, it finds a global table named stepper:
//
//	stepper.append(entryPoint, name, fn)
//	stepper.prepend(entryPoint, name, fn)
//	stepper.append_last(entryPoint, name, fn)
//	stepper.prepend_first(entryPoint, name, fn)
//	stepper.time(), stepper.step(), stepper.dt()
//	stepper.config(key)
//	stepper.quit()
//	stepper.log(message)
//
// Dt hooks return the proposed time step size. Step hooks receive dt. Every
// other hook is called without arguments.
package extension

import (
	"fmt"
	"path/filepath"

	"github.com/sarchlab/stepper/config"
	"github.com/sarchlab/stepper/simulation"
)

// Loader loads the Lua modules of a context.
type Loader struct {
	baseDir string
	modules []*Module
}

// NewLoader creates a Loader that resolves relative module paths against
// baseDir.
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// Modules returns the modules loaded so far.
func (l *Loader) Modules() []*Module {
	return l.modules
}

// LoadModules loads every module listed in the settings of c.
func (l *Loader) LoadModules(c *simulation.Context, dict config.Dictionary) error {
	for _, path := range c.Settings().Extensions {
		if !filepath.IsAbs(path) && l.baseDir != "" {
			path = filepath.Join(l.baseDir, path)
		}

		m, err := LoadModule(c, dict, path)
		if err != nil {
			return fmt.Errorf("extension %s: %w", path, err)
		}

		l.modules = append(l.modules, m)
	}

	return nil
}
