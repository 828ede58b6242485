package rogbus

import (
	"embed"
	"encoding/xml"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	Service   = "org.asuslinux.Daemon"
	Interface = "org.asuslinux.Daemon"
)

// Interface descriptions shipped with the binary, one per daemon object.
const (
	SchemaPlatform  = "org-asuslinux-platform-4"
	SchemaPower     = "org-asuslinux-power-4"
	SchemaAura      = "org-asuslinux-aura-4"
	SchemaAnime     = "org-asuslinux-anime-4"
	SchemaSupported = "org-asuslinux-supported-4"
)

//go:embed xml/*.xml
var schemaFS embed.FS

// Schema is a resolved interface description.
type Schema struct {
	Name    string
	Path    dbus.ObjectPath
	Iface   introspect.Interface
	methods map[string]introspect.Method
	signals map[string]introspect.Signal
}

func (s *Schema) HasMethod(name string) bool {
	_, ok := s.methods[name]
	return ok
}

func (s *Schema) HasSignal(name string) bool {
	_, ok := s.signals[name]
	return ok
}

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*Schema{}
)

// LoadSchema parses the embedded description called name and picks out the
// daemon interface. Results are cached.
func LoadSchema(name string) (*Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	if s, ok := schemaCache[name]; ok {
		return s, nil
	}

	data, err := schemaFS.ReadFile("xml/" + name + ".xml")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}
	s, err := parseSchema(name, data)
	if err != nil {
		return nil, err
	}
	schemaCache[name] = s
	return s, nil
}

func parseSchema(name string, data []byte) (*Schema, error) {
	var node introspect.Node
	if err := xml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", name, err)
	}

	for _, iface := range node.Interfaces {
		if iface.Name != Interface {
			continue
		}
		s := &Schema{
			Name:    name,
			Path:    dbus.ObjectPath(node.Name),
			Iface:   iface,
			methods: make(map[string]introspect.Method, len(iface.Methods)),
			signals: make(map[string]introspect.Signal, len(iface.Signals)),
		}
		for _, m := range iface.Methods {
			s.methods[m.Name] = m
		}
		for _, sig := range iface.Signals {
			s.signals[sig.Name] = sig
		}
		return s, nil
	}
	return nil, fmt.Errorf("schema %q has no %s interface", name, Interface)
}
