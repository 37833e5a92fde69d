package schema

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// RawParam is one <param> of a command, response or event.
type RawParam struct {
	Name string `yaml:"name" xml:"name,attr"`
	Type string `yaml:"type" xml:"type,attr"`
}

// RawParams wraps a <params> or <returns> element.
type RawParams struct {
	Params []RawParam `xml:"param"`
}

// RawCommand is a command with its parameters and response fields.
type RawCommand struct {
	Name    string     `yaml:"name" xml:"name,attr"`
	Index   string     `yaml:"index" xml:"index,attr"`
	Params  []RawParam `yaml:"params" xml:"-"`
	Returns []RawParam `yaml:"returns" xml:"-"`

	XMLParams  RawParams `yaml:"-" xml:"params"`
	XMLReturns RawParams `yaml:"-" xml:"returns"`
}

// RawEvent is an event with its parameters.
type RawEvent struct {
	Name   string     `yaml:"name" xml:"name,attr"`
	Index  string     `yaml:"index" xml:"index,attr"`
	Params []RawParam `yaml:"params" xml:"-"`

	XMLParams RawParams `yaml:"-" xml:"params"`
}

// RawEnum is a named constant. Values accept decimal or 0x hex.
type RawEnum struct {
	Name  string `yaml:"name" xml:"name,attr"`
	Value string `yaml:"value" xml:"value,attr"`
}

// RawEnums groups <enum> elements.
type RawEnums struct {
	Name  string    `xml:"name,attr"`
	Enums []RawEnum `xml:"enum"`
}

// RawClass is a functional group of commands, events and enums.
type RawClass struct {
	Name     string       `yaml:"name" xml:"name,attr"`
	Index    string       `yaml:"index" xml:"index,attr"`
	Commands []RawCommand `yaml:"commands" xml:"command"`
	Events   []RawEvent   `yaml:"events" xml:"event"`
	Enums    []RawEnum    `yaml:"enums" xml:"-"`

	XMLEnums []RawEnums `yaml:"-" xml:"enums"`
}

// RawAPI is the top-level API definition.
type RawAPI struct {
	XMLName xml.Name   `yaml:"-" xml:"api"`
	Device  string     `yaml:"device" xml:"device_name,attr"`
	Version string     `yaml:"version" xml:"version,attr"`
	Classes []RawClass `yaml:"classes" xml:"class"`
}

// ParseYAML parses a YAML API definition and builds a Schema.
func ParseYAML(data []byte) (*Schema, error) {
	var api RawAPI
	if err := yaml.Unmarshal(data, &api); err != nil {
		return nil, fmt.Errorf("parsing schema yaml: %w", err)
	}
	return api.Build()
}

// ParseXML parses a BGAPI XML API definition and builds a Schema.
func ParseXML(data []byte) (*Schema, error) {
	var api RawAPI
	if err := xml.Unmarshal(data, &api); err != nil {
		return nil, fmt.Errorf("parsing schema xml: %w", err)
	}
	for ci := range api.Classes {
		c := &api.Classes[ci]
		for i := range c.Commands {
			c.Commands[i].Params = c.Commands[i].XMLParams.Params
			c.Commands[i].Returns = c.Commands[i].XMLReturns.Params
		}
		for i := range c.Events {
			c.Events[i].Params = c.Events[i].XMLParams.Params
		}
		for _, group := range c.XMLEnums {
			c.Enums = append(c.Enums, group.Enums...)
		}
	}
	return api.Build()
}

// Load reads a schema file, choosing the format from the extension
// (.xml, or .yaml/.yml).
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return ParseXML(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported schema format %q", filepath.Ext(path))
	}
}

// Build converts the raw definition into a validated Schema. Each command
// yields a command descriptor from its params and a response descriptor
// from its returns. Enum constants are named "<class>_<enum>".
func (api *RawAPI) Build() (*Schema, error) {
	var messages []MessageDescriptor
	var constants []ConstantDescriptor

	for _, c := range api.Classes {
		classIndex, err := parseIndex(c.Index)
		if err != nil {
			return nil, fmt.Errorf("class %q: %w", c.Name, err)
		}

		for _, cmd := range c.Commands {
			index, err := parseIndex(cmd.Index)
			if err != nil {
				return nil, fmt.Errorf("command %s_%s: %w", c.Name, cmd.Name, err)
			}
			params, err := buildFields(cmd.Params)
			if err != nil {
				return nil, fmt.Errorf("command %s_%s: %w", c.Name, cmd.Name, err)
			}
			returns, err := buildFields(cmd.Returns)
			if err != nil {
				return nil, fmt.Errorf("response %s_%s: %w", c.Name, cmd.Name, err)
			}
			messages = append(messages,
				MessageDescriptor{Kind: KindCommand, ClassName: c.Name, Name: cmd.Name, Class: classIndex, Index: index, Fields: params},
				MessageDescriptor{Kind: KindResponse, ClassName: c.Name, Name: cmd.Name, Class: classIndex, Index: index, Fields: returns},
			)
		}

		for _, evt := range c.Events {
			index, err := parseIndex(evt.Index)
			if err != nil {
				return nil, fmt.Errorf("event %s_%s: %w", c.Name, evt.Name, err)
			}
			params, err := buildFields(evt.Params)
			if err != nil {
				return nil, fmt.Errorf("event %s_%s: %w", c.Name, evt.Name, err)
			}
			messages = append(messages,
				MessageDescriptor{Kind: KindEvent, ClassName: c.Name, Name: evt.Name, Class: classIndex, Index: index, Fields: params})
		}

		for _, e := range c.Enums {
			v, err := strconv.ParseInt(strings.TrimSpace(e.Value), 0, 64)
			if err != nil {
				return nil, fmt.Errorf("enum %s_%s: invalid value %q", c.Name, e.Name, e.Value)
			}
			constants = append(constants, ConstantDescriptor{Name: c.Name + "_" + e.Name, Value: v})
		}
	}

	return New(messages, constants)
}

func buildFields(params []RawParam) ([]FieldDescriptor, error) {
	fields := make([]FieldDescriptor, 0, len(params))
	for _, p := range params {
		tag, err := wire.ParseTypeTag(p.Type)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", p.Name, err)
		}
		fields = append(fields, FieldDescriptor{Name: p.Name, Type: tag})
	}
	return fields, nil
}

func parseIndex(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return uint8(v), nil
}
