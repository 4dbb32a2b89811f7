// Package models - Definitions for model output class sets.
package models

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet maps model class indices to labels.
type OutputClassSet struct {
	// Classes that are supported and mappable, ordered by index.
	Classes []OutputClass
	// byIdx for fast lookup by index
	byIdx map[int]string
}

// NewOutputClassSet builds a class set from an index->name map.
func NewOutputClassSet(names map[int]string) *OutputClassSet {
	s := &OutputClassSet{byIdx: make(map[int]string, len(names))}
	for idx, name := range names {
		s.Classes = append(s.Classes, OutputClass{Index: idx, Name: name})
		s.byIdx[idx] = name
	}
	sort.Slice(s.Classes, func(i, j int) bool { return s.Classes[i].Index < s.Classes[j].Index })
	return s
}

// Len returns the number of classes. It is the head width the model must emit.
func (s *OutputClassSet) Len() int {
	if s == nil || len(s.Classes) == 0 {
		return 0
	}
	return s.Classes[len(s.Classes)-1].Index + 1
}

// Name returns the label for idx, or "class_<idx>" when the index is unmapped.
func (s *OutputClassSet) Name(idx int) string {
	if s != nil {
		if name, ok := s.byIdx[idx]; ok {
			return name
		}
	}
	return fmt.Sprintf("class_%d", idx)
}

// Index returns the first index carrying name.
func (s *OutputClassSet) Index(name string) (int, error) {
	for _, c := range s.Classes {
		if c.Name == name {
			return c.Index, nil
		}
	}
	return -1, errors.Errorf("name %q not found", name)
}

// SpeedSignClasses is the default label set of the speed-limit detector.
// Indices follow the order the training labels were remapped to.
var SpeedSignClasses = NewOutputClassSet(map[int]string{
	0:  "10",
	1:  "20",
	2:  "30",
	3:  "40",
	4:  "50",
	5:  "60",
	6:  "70",
	7:  "80",
	8:  "90",
	9:  "100",
	10: "110",
	11: "120",
})

// ParseUltralyticsNames decodes the "names" entry ultralytics writes into the
// ONNX custom metadata, e.g. "{0: '10', 1: '20'}". The value is a flow mapping,
// so it is read as YAML.
func ParseUltralyticsNames(value string) (*OutputClassSet, error) {
	names := map[int]string{}
	if err := yaml.Unmarshal([]byte(value), &names); err != nil {
		return nil, errors.Wrap(err, "parsing class names")
	}
	if len(names) == 0 {
		return nil, errors.New("no class names in metadata")
	}
	return NewOutputClassSet(names), nil
}

// LoadLabels reads a class set from disk.
//
// Files ending in .yaml or .yml may either be a dataset description with a
// "names" key (list or map) or a bare index->name map. Any other file is read
// as one label per line, the line number being the index.
func LoadLabels(path string) (*OutputClassSet, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return loadYAMLLabels(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening labels %s", path)
	}
	defer f.Close()

	names := map[int]string{}
	scanner := bufio.NewScanner(f)
	for idx := 0; scanner.Scan(); idx++ {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			names[idx] = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading labels %s", path)
	}
	if len(names) == 0 {
		return nil, errors.Errorf("labels file %s is empty", path)
	}
	return NewOutputClassSet(names), nil
}

func loadYAMLLabels(path string) (*OutputClassSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading labels %s", path)
	}

	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing labels %s", path)
	}

	names := map[int]string{}
	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := doc.Names.Decode(&list); err != nil {
			return nil, errors.Wrapf(err, "decoding names in %s", path)
		}
		for i, n := range list {
			names[i] = n
		}
	case yaml.MappingNode:
		if err := doc.Names.Decode(&names); err != nil {
			return nil, errors.Wrapf(err, "decoding names in %s", path)
		}
	default:
		// No "names" key: the whole document is the map.
		if err := yaml.Unmarshal(data, &names); err != nil {
			return nil, errors.Wrapf(err, "decoding labels %s", path)
		}
	}

	if len(names) == 0 {
		return nil, errors.Errorf("no labels in %s", path)
	}
	return NewOutputClassSet(names), nil
}
