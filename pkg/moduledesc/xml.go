// SPDX-License-Identifier: MPL-2.0

package moduledesc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

type (
	xmlModule struct {
		XMLName      xml.Name         `xml:"module"`
		Xmlns        string           `xml:"xmlns,attr,omitempty"`
		Name         string           `xml:"name,attr"`
		MainClass    *xmlNamed        `xml:"main-class,omitempty"`
		Resources    xmlResources     `xml:"resources"`
		Dependencies *xmlDependencies `xml:"dependencies,omitempty"`
	}

	xmlNamed struct {
		Name string `xml:"name,attr"`
	}

	// xmlResources keeps resource-root and artifact entries interleaved in
	// document order.
	xmlResources struct {
		Items []xmlEntry `xml:",any"`
	}

	xmlEntry struct {
		XMLName xml.Name
		Path    string `xml:"path,attr,omitempty"`
		Name    string `xml:"name,attr,omitempty"`
	}

	xmlDependencies struct {
		Modules []xmlModuleDep `xml:"module"`
	}

	xmlModuleDep struct {
		Name    string     `xml:"name,attr"`
		Export  string     `xml:"export,attr,omitempty"`
		Exports *xmlFilter `xml:"exports,omitempty"`
		Imports *xmlFilter `xml:"imports,omitempty"`
	}

	xmlFilter struct {
		Items []xmlEntry `xml:",any"`
	}
)

const (
	elemResourceRoot = "resource-root"
	elemArtifact     = "artifact"
	elemInclude      = "include"
	elemExclude      = "exclude"
	metaInf          = "META-INF"
)

// Marshal renders d as an indented module.xml document.
func (d *Descriptor) Marshal() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	doc := xmlModule{
		Xmlns: Namespace,
		Name:  d.Name,
	}
	if d.MainClass != "" {
		doc.MainClass = &xmlNamed{Name: d.MainClass}
	}
	for _, r := range d.Resources {
		if r.Path != "" {
			doc.Resources.Items = append(doc.Resources.Items, xmlEntry{XMLName: xml.Name{Local: elemResourceRoot}, Path: r.Path})
		} else {
			doc.Resources.Items = append(doc.Resources.Items, xmlEntry{XMLName: xml.Name{Local: elemArtifact}, Name: r.Artifact})
		}
	}
	if len(d.Dependencies) > 0 {
		doc.Dependencies = &xmlDependencies{}
		for _, dep := range d.Dependencies {
			doc.Dependencies.Modules = append(doc.Dependencies.Modules, toXMLDep(dep))
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("rendering module %s: %w", d.Name, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func toXMLDep(dep Dependency) xmlModuleDep {
	m := xmlModuleDep{Name: dep.Name}
	if dep.Export {
		m.Export = "true"
	}
	if len(dep.ExportFilters) > 0 {
		m.Exports = &xmlFilter{}
		for _, f := range dep.ExportFilters {
			path, exclude := Excluded(f)
			local := elemInclude
			if exclude {
				local = elemExclude
			}
			m.Exports.Items = append(m.Exports.Items, xmlEntry{XMLName: xml.Name{Local: local}, Path: path})
		}
	}
	if dep.ImportMeta {
		m.Imports = &xmlFilter{Items: []xmlEntry{{XMLName: xml.Name{Local: elemInclude}, Path: metaInf}}}
	}
	return m
}

// Parse reads a module.xml document. The namespace version is not checked.
func Parse(r io.Reader) (*Descriptor, error) {
	var doc xmlModule
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing module descriptor: %w", err)
	}

	d := New(doc.Name)
	if doc.MainClass != nil {
		d.MainClass = doc.MainClass.Name
	}
	for _, e := range doc.Resources.Items {
		switch e.XMLName.Local {
		case elemResourceRoot:
			d.Resources = append(d.Resources, Resource{Path: e.Path})
		case elemArtifact:
			d.Resources = append(d.Resources, Resource{Artifact: e.Name})
		}
	}
	if doc.Dependencies != nil {
		for _, m := range doc.Dependencies.Modules {
			dep := Dependency{Name: m.Name, Export: m.Export == "true"}
			if m.Exports != nil {
				for _, e := range m.Exports.Items {
					if e.XMLName.Local == elemExclude {
						dep.ExportFilters = append(dep.ExportFilters, "!"+e.Path)
					} else {
						dep.ExportFilters = append(dep.ExportFilters, e.Path)
					}
				}
			}
			if m.Imports != nil {
				for _, e := range m.Imports.Items {
					if e.XMLName.Local == elemInclude && e.Path == metaInf {
						dep.ImportMeta = true
					}
				}
			}
			d.Dependencies = append(d.Dependencies, dep)
		}
	}
	return d, nil
}

// ReadFile parses the descriptor at path.
func ReadFile(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// WriteFile renders d to path and reports whether the file changed. An
// existing file with identical content is left untouched.
func (d *Descriptor) WriteFile(path string) (changed bool, err error) {
	data, err := d.Marshal()
	if err != nil {
		return false, err
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if bytes.Equal(existing, data) {
			return false, nil
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating module directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
