package loader

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/roach88/executioner/internal/script"
)

//go:embed document.schema.json
var documentSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(documentSchema)

// documentFile is the on-disk shape shared by every format.
type documentFile struct {
	ID       string       `yaml:"id" json:"id,omitempty"`
	Name     string       `yaml:"name" json:"name,omitempty"`
	Created  string       `yaml:"created" json:"created"`
	Order    int          `yaml:"order" json:"order,omitempty"`
	Executor string       `yaml:"executor" json:"executor,omitempty"`
	Scripts  []scriptFile `yaml:"scripts" json:"scripts"`
}

type scriptFile struct {
	ID       string `yaml:"id" json:"id"`
	Created  string `yaml:"created" json:"created,omitempty"`
	Order    int    `yaml:"order" json:"order,omitempty"`
	Executor string `yaml:"executor" json:"executor,omitempty"`
	Text     string `yaml:"text" json:"text"`
}

// decoder turns raw bytes into a documentFile.
type decoder func(name string, data []byte) (*documentFile, error)

// decoderFor returns the decoder for a file name, or nil if the extension is
// not a document format.
func (l *FS) decoderFor(name string) decoder {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return decodeYAML
	case ".json":
		return decodeJSON
	case ".cue":
		return l.decodeCUE
	default:
		return nil
	}
}

func decodeYAML(name string, data []byte) (*documentFile, error) {
	var f documentFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Path: name, Message: "failed to parse YAML", Err: err}
	}
	return &f, nil
}

func decodeJSON(name string, data []byte) (*documentFile, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Path: name, Message: "failed to parse JSON", Err: err}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, &LoadError{
			Code:    ErrCodeSchemaFailed,
			Path:    name,
			Message: "document does not match schema: " + strings.Join(msgs, "; "),
		}
	}

	var f documentFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Path: name, Message: "failed to decode JSON", Err: err}
	}
	return &f, nil
}

func (l *FS) decodeCUE(name string, data []byte) (*documentFile, error) {
	if l.cue == nil {
		l.cue = cuecontext.New()
	}

	v := l.cue.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Path: name, Message: "failed to compile CUE", Err: err}
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeSchemaFailed, Path: name, Message: "CUE value is not concrete", Err: err}
	}

	var f documentFile
	if err := v.Decode(&f); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Path: name, Message: "failed to decode CUE", Err: err}
	}
	return &f, nil
}

// toDocument applies defaults and parses dates. A missing document ID
// defaults to the file name without its extension.
func (f *documentFile) toDocument(name string) (*script.Document, error) {
	id := f.ID
	if id == "" {
		base := path.Base(name)
		id = strings.TrimSuffix(base, path.Ext(base))
	}

	created, err := script.ParseDate(f.Created)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadDate, Path: name, Message: fmt.Sprintf("document %s", id), Err: err}
	}

	doc := &script.Document{
		ID:      id,
		Name:    f.Name,
		Created: created,
		Order:   f.Order,
		Scripts: make([]*script.Script, 0, len(f.Scripts)),
	}
	if doc.Name == "" {
		doc.Name = id
	}

	for _, sf := range f.Scripts {
		sc := &script.Script{
			ID:       sf.ID,
			Created:  created,
			Order:    sf.Order,
			Executor: sf.Executor,
			Text:     sf.Text,
		}
		if sf.Created != "" {
			sc.Created, err = script.ParseDate(sf.Created)
			if err != nil {
				return nil, &LoadError{Code: ErrCodeBadDate, Path: name, Message: fmt.Sprintf("script %s", sf.ID), Err: err}
			}
		}
		if sc.Executor == "" {
			sc.Executor = f.Executor
		}
		doc.Scripts = append(doc.Scripts, sc)
	}
	return doc, nil
}
