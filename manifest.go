package gatekit

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML form of a Registry.
//
//	modules:
//	  - name: notes
//	    permissions:
//	      - action: view
//	        description: Read notes
//	      - action: edit
//	roles:
//	  - name: editor
//	    description: Edits notes
//	    grants: [notes.view, notes.edit]
type Manifest struct {
	Modules []ManifestModule `yaml:"modules"`
	Roles   []ManifestRole   `yaml:"roles"`
}

// ManifestModule lists the actions of one module.
type ManifestModule struct {
	Name        string               `yaml:"name"`
	Permissions []ManifestPermission `yaml:"permissions"`
}

// ManifestPermission is one action of a module.
type ManifestPermission struct {
	Action      string `yaml:"action"`
	Description string `yaml:"description"`
}

// ManifestRole declares a role and its grants.
type ManifestRole struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Grants      []string `yaml:"grants"`
}

// LoadManifest reads a manifest file into a new Registry.
func LoadManifest(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	defer f.Close()
	return ReadManifest(f)
}

// ReadManifest parses a manifest. Unknown keys are rejected.
func ReadManifest(r io.Reader) (*Registry, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return nil, NewError(ErrMisconfiguration, "failed to parse manifest").WithCause(err)
	}

	registry := m.Registry()
	if err := registry.Validate(); err != nil {
		return nil, NewError(ErrMisconfiguration, "invalid manifest").WithCause(err)
	}
	return registry, nil
}

// Registry converts the manifest into a Registry. It does not validate.
func (m Manifest) Registry() *Registry {
	registry := NewRegistry()
	for _, mod := range m.Modules {
		md := registry.Module(mod.Name)
		for _, p := range mod.Permissions {
			md.Permission(p.Action, p.Description)
		}
	}
	for _, role := range m.Roles {
		registry.Role(role.Name, role.Description).Grants(role.Grants...)
	}
	return registry
}

// ManifestFromRegistry builds the manifest form of a registry. Permissions
// are grouped by module.
func ManifestFromRegistry(registry *Registry) Manifest {
	var m Manifest
	index := map[string]int{}
	for _, p := range registry.Permissions() {
		module, action, _ := SplitPermission(p.Name)
		i, ok := index[module]
		if !ok {
			i = len(m.Modules)
			index[module] = i
			m.Modules = append(m.Modules, ManifestModule{Name: module})
		}
		m.Modules[i].Permissions = append(m.Modules[i].Permissions, ManifestPermission{Action: action, Description: p.Description})
	}
	for _, rd := range registry.Roles() {
		m.Roles = append(m.Roles, ManifestRole{Name: rd.Name(), Description: rd.Description(), Grants: rd.GetGrants()})
	}
	return m
}

// Marshal renders the manifest as YAML.
func (m Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
