// Package registry compiles the static interception registry: which
// call sites get memoized, under which caching discipline, with which
// serializer pair.
//
// Registration is configuration, not code mutation: a CUE file names
// each qualified call site and its per-site settings, e.g.
//
//	site: {
//		"ModelBackend.relation_get": {
//			caching_policy: "loose"
//			serializer: {input: "json", output: "json"}
//		}
//		"ModelBackend.status_get": {}
//	}
//
// Omitted settings take the safe defaults (strict, json/json); unknown
// policy or serializer tags are warned about and replaced by the
// defaults at compile time, so every loaded site is valid.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/Gu1nness/jhack/internal/codec"
	"github.com/Gu1nness/jhack/internal/recorder"
)

// CompileError reports a malformed registry entry.
type CompileError struct {
	Site    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	where := e.Site
	if e.Field != "" {
		where = where + "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: site %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), where, e.Message)
	}
	return fmt.Sprintf("site %s: %s", where, e.Message)
}

// Load compiles every CUE file in dir into the site table, sorted by
// qualified name for deterministic iteration.
func Load(dir string) ([]recorder.Site, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("registry directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("registry path is not a directory: %s", dir)
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan registry directory: %w", err)
	}
	if len(cueFiles) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	// Name the files explicitly: loading the directory as a package
	// ("." ) would exclude registry files, which carry no package
	// clause.
	args := make([]string, len(cueFiles))
	for i, f := range cueFiles {
		args[i] = filepath.Base(f)
	}
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	return compileSites(value)
}

// compileSites extracts the site table from a built CUE value.
func compileSites(value cue.Value) ([]recorder.Site, error) {
	sitesVal := value.LookupPath(cue.ParsePath("site"))
	if !sitesVal.Exists() {
		return nil, fmt.Errorf(`registry has no "site" table`)
	}

	iter, err := sitesVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating sites: %w", err)
	}

	var sites []recorder.Site
	for iter.Next() {
		site, err := compileSite(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}

	slices.SortFunc(sites, func(a, b recorder.Site) int {
		return strings.Compare(a.QualifiedName(), b.QualifiedName())
	})
	return sites, nil
}

// compileSite parses one registry entry. The label is the qualified
// memo name; a label with no namespace part falls under the default
// namespace.
func compileSite(label string, v cue.Value) (recorder.Site, error) {
	namespace, name, ok := strings.Cut(label, ".")
	if !ok {
		namespace, name = recorder.DefaultNamespace, label
	}
	if name == "" || namespace == "" {
		return recorder.Site{}, &CompileError{
			Site:    label,
			Message: "qualified name must be Namespace.method",
			Pos:     v.Pos(),
		}
	}

	site := recorder.Site{
		Namespace:  namespace,
		Name:       name,
		Policy:     recorder.PolicyStrict,
		Serializer: codec.DefaultPair,
	}

	policyVal := v.LookupPath(cue.ParsePath("caching_policy"))
	if policyVal.Exists() {
		policy, err := policyVal.String()
		if err != nil {
			return recorder.Site{}, &CompileError{
				Site: label, Field: "caching_policy",
				Message: "must be a string", Pos: policyVal.Pos(),
			}
		}
		site.Policy = recorder.CheckPolicy(recorder.Policy(policy), nil)
	}

	serializerVal := v.LookupPath(cue.ParsePath("serializer"))
	if serializerVal.Exists() {
		pair, err := compileSerializer(label, serializerVal)
		if err != nil {
			return recorder.Site{}, err
		}
		site.Serializer = codec.CheckPair(pair, nil)
	}

	return site, nil
}

// compileSerializer accepts a single tag applying to both sides or an
// {input, output} struct.
func compileSerializer(label string, v cue.Value) (codec.Pair, error) {
	if single, err := v.String(); err == nil {
		return codec.Pair{Input: codec.Format(single), Output: codec.Format(single)}, nil
	}

	inputVal := v.LookupPath(cue.ParsePath("input"))
	outputVal := v.LookupPath(cue.ParsePath("output"))
	if !inputVal.Exists() || !outputVal.Exists() {
		return codec.Pair{}, &CompileError{
			Site: label, Field: "serializer",
			Message: "must be a tag string or {input, output}", Pos: v.Pos(),
		}
	}
	input, err := inputVal.String()
	if err != nil {
		return codec.Pair{}, &CompileError{
			Site: label, Field: "serializer.input",
			Message: "must be a string", Pos: inputVal.Pos(),
		}
	}
	output, err := outputVal.String()
	if err != nil {
		return codec.Pair{}, &CompileError{
			Site: label, Field: "serializer.output",
			Message: "must be a string", Pos: outputVal.Pos(),
		}
	}
	return codec.Pair{Input: codec.Format(input), Output: codec.Format(output)}, nil
}

func findCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".cue" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}
