// Copyright 2015 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package relauncher

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a profile file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath picks the format from the file extension.  Anything that
// is not recognizably YAML or TOML is read as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	}
	return FormatJSON
}

// tomlProfile is the TOML layout: an array of [[app]] tables.
type tomlProfile struct {
	App []Record `toml:"app"`
}

// ParseProfile reads an ordered list of records in the given format and
// converts them to descriptors.  Any bad record fails the whole profile.
func ParseProfile(r io.Reader, format Format) ([]*Descriptor, error) {
	var records []Record
	switch format {
	case FormatJSON:
		if e := json.NewDecoder(r).Decode(&records); e != nil {
			return nil, fmt.Errorf("parsing json profile: %w", e)
		}
	case FormatYAML:
		if e := yaml.NewDecoder(r).Decode(&records); e != nil && e != io.EOF {
			return nil, fmt.Errorf("parsing yaml profile: %w", e)
		}
	case FormatTOML:
		var tp tomlProfile
		if e := toml.NewDecoder(r).Decode(&tp); e != nil {
			return nil, fmt.Errorf("parsing toml profile: %w", e)
		}
		records = tp.App
	default:
		return nil, fmt.Errorf("unknown profile format %q", format)
	}

	descs := make([]*Descriptor, 0, len(records))
	names := make(map[string]bool)
	for i := range records {
		d, e := records[i].Descriptor(i)
		if e != nil {
			return nil, e
		}
		if names[d.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, d.Name)
		}
		names[d.Name] = true
		descs = append(descs, d)
	}
	return descs, nil
}

// LoadProfile reads the profile at path.
func LoadProfile(path string) ([]*Descriptor, error) {
	if fi, e := os.Stat(path); e != nil || fi.IsDir() {
		return nil, fmt.Errorf("%s: %w", path, ErrProfileNotFound)
	}
	f, e := os.Open(path)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	descs, e := ParseProfile(f, FormatForPath(path))
	if e != nil {
		return nil, fmt.Errorf("%s: %w", path, e)
	}
	return descs, nil
}
