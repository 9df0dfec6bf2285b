package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hamba/avro/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/avro-model/messaging"
	"github.com/wippyai/avro-model/schemaregistry"
	"github.com/wippyai/avro-model/transcoder"
)

func main() {
	var (
		schemaFile  = flag.String("schema", "", "Path to the value schema (.avsc)")
		keyFile     = flag.String("key-schema", "", "Path to the key schema (optional)")
		writerFile  = flag.String("writer", "", "Writer schema to resolve against when decoding")
		configFile  = flag.String("config", "", "YAML config file")
		registryURL = flag.String("registry", "", "Schema registry URL; frames encoded output")
		topic       = flag.String("topic", "", "Topic for <topic>-value subjects (default: schema full name)")
		prefix      = flag.String("namespace-prefix", "", "Namespace prefix stripped from model names")
		fingerprint = flag.Bool("fingerprint", false, "Print the schema fingerprint and exit")
		describe    = flag.Bool("describe", false, "Print the model descriptor tree and exit")
		encodeJSON  = flag.String("encode", "", "Encode a JSON object")
		decodeHex   = flag.String("decode", "", "Decode hex bytes to JSON")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fail(err)
	}
	cfg.override(Config{
		Schema:          *schemaFile,
		KeySchema:       *keyFile,
		Writer:          *writerFile,
		Registry:        *registryURL,
		Topic:           *topic,
		NamespacePrefix: *prefix,
	})

	if cfg.Schema == "" {
		fmt.Fprintln(os.Stderr, "Usage: avrotool -schema <file.avsc> [-key-schema file] -fingerprint|-describe")
		fmt.Fprintln(os.Stderr, "       avrotool -schema <file.avsc> -encode '{\"field\": ...}'")
		fmt.Fprintln(os.Stderr, "       avrotool -schema <file.avsc> [-writer old.avsc] -decode <hex>")
		fmt.Fprintln(os.Stderr, "       avrotool -schema <file.avsc> -i  (interactive mode)")
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			fail(err)
		}
		defer func() { _ = logger.Sync() }()
		transcoder.SetLogger(logger)
	}

	t, err := newTool(cfg, logger)
	if err != nil {
		fail(err)
	}

	if *interactive {
		if err := runInteractive(t); err != nil {
			fail(err)
		}
		return
	}

	if err := t.run(os.Stdout, *fingerprint, *describe, *encodeJSON, *decodeHex); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// tool holds the model and the optional registry framing.
type tool struct {
	model  *transcoder.Model
	writer avro.Schema
	msg    *messaging.Messaging
	source string
}

func newTool(cfg *Config, logger *zap.Logger) (*tool, error) {
	valueSchema, err := loadSchema(cfg.Schema)
	if err != nil {
		return nil, err
	}
	var keySchema avro.Schema
	if cfg.KeySchema != "" {
		if keySchema, err = loadSchema(cfg.KeySchema); err != nil {
			return nil, err
		}
	}

	registry := transcoder.NewRegistry(transcoder.WithNamespacePrefix(cfg.NamespacePrefix))
	model, err := transcoder.NewCompiler(transcoder.WithRegistry(registry)).NewModel(valueSchema, keySchema)
	if err != nil {
		return nil, err
	}

	t := &tool{model: model, source: cfg.Schema}
	if cfg.Writer != "" {
		if t.writer, err = loadSchema(cfg.Writer); err != nil {
			return nil, err
		}
	}
	if cfg.Registry != "" {
		opts := []messaging.Option{messaging.WithLogger(logger)}
		if cfg.Topic != "" {
			opts = append(opts, messaging.WithSubject(messaging.TopicSubject(cfg.Topic)))
		}
		client := schemaregistry.NewClient(cfg.Registry, schemaregistry.WithLogger(logger))
		t.msg = messaging.New(client, opts...)
	}
	return t, nil
}

func loadSchema(path string) (avro.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	s, err := avro.ParseWithCache(string(data), "", &avro.SchemaCache{})
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	return s, nil
}

func (t *tool) run(out io.Writer, fingerprint, describe bool, encodeJSON, decodeHex string) error {
	switch {
	case fingerprint:
		fp := t.model.Fingerprint()
		fmt.Fprintf(out, "%s %s\n", hex.EncodeToString(fp[:]), t.model.Name())
		if t.model.HasKey() {
			kfp := t.model.KeySchema().Fingerprint()
			fmt.Fprintf(out, "%s %s (key)\n", hex.EncodeToString(kfp[:]), t.model.KeySchema().FullName())
		}
		return nil

	case describe:
		describeModel(out, t.model)
		return nil

	case encodeJSON != "":
		data, err := t.encode(context.Background(), encodeJSON)
		if err != nil {
			return err
		}
		if isTerminal(out) {
			fmt.Fprintln(out, hex.EncodeToString(data))
			return nil
		}
		_, err = out.Write(data)
		return err

	case decodeHex != "":
		data, err := hex.DecodeString(strings.TrimSpace(decodeHex))
		if err != nil {
			return fmt.Errorf("decode hex: %w", err)
		}
		doc, err := t.decode(context.Background(), data)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(doc))
		return nil
	}

	describeModel(out, t.model)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// encode builds an instance from a JSON object and encodes its value side.
func (t *tool) encode(ctx context.Context, input string) ([]byte, error) {
	attrs, err := parseObject(input)
	if err != nil {
		return nil, err
	}
	inst, err := t.model.New(attrs)
	if err != nil {
		return nil, err
	}
	if t.msg != nil {
		return t.msg.EncodeValue(ctx, inst)
	}
	return t.model.EncodeValue(inst)
}

// decode decodes a value payload and renders its attributes as JSON.
func (t *tool) decode(ctx context.Context, data []byte) ([]byte, error) {
	var (
		inst *transcoder.Instance
		err  error
	)
	if t.msg != nil {
		inst, err = t.msg.DecodeValue(ctx, t.model, data)
	} else {
		inst, err = t.model.DecodeValue(data, t.writer)
	}
	if err != nil {
		return nil, err
	}
	return render(inst)
}

func render(inst *transcoder.Instance) ([]byte, error) {
	host, err := inst.ToMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonable(host))
}

func parseObject(input string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()
	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		return nil, fmt.Errorf("parse JSON input: %w", err)
	}
	return attrs, nil
}

// parseField reads one interactive field: JSON when it parses, else the raw
// text. Empty input is null.
func parseField(input string) any {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err == nil && !dec.More() {
		return v
	}
	return input
}

// jsonable rewrites host values that encoding/json renders poorly.
func jsonable(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonable(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonable(e)
		}
		return out
	case []byte:
		return hex.EncodeToString(x)
	case transcoder.Date:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return v
}

func describeModel(w io.Writer, m *transcoder.Model) {
	fmt.Fprintf(w, "model %s\n", m.Name())
	for _, f := range m.Attributes() {
		tag := ""
		if f.Key {
			tag = " [key]"
		}
		fmt.Fprintf(w, "  %s%s: ", f.Name, tag)
		describeType(w, f.Type, "    ", map[*transcoder.Model]bool{m: true})
	}
}

func describeType(w io.Writer, d *transcoder.Descriptor, indent string, seen map[*transcoder.Model]bool) {
	switch d.Kind {
	case transcoder.KindRecord:
		if seen[d.Model] {
			fmt.Fprintf(w, "%s (recursive)\n", d.Name)
			return
		}
		fmt.Fprintf(w, "%s\n", d.Name)
		seen[d.Model] = true
		for _, f := range d.Model.Fields() {
			fmt.Fprintf(w, "%s%s: ", indent, f.Name)
			describeType(w, f.Type, indent+"  ", seen)
		}
		delete(seen, d.Model)
	case transcoder.KindEnum:
		fmt.Fprintf(w, "%s {%s}\n", d.Name, strings.Join(d.Symbols, ", "))
	case transcoder.KindUnion:
		fmt.Fprintln(w, "union")
		for i, v := range d.Variants {
			fmt.Fprintf(w, "%s%d: ", indent, i)
			describeType(w, v, indent+"  ", seen)
		}
	case transcoder.KindArray, transcoder.KindMap:
		fmt.Fprintf(w, "%s of ", d.Kind)
		describeType(w, d.Elem, indent, seen)
	case transcoder.KindCustom:
		fmt.Fprintf(w, "%s (custom) over ", d.Name)
		describeType(w, d.Elem, indent, seen)
	default:
		fmt.Fprintln(w, d.TypeName())
	}
}

// hexDump renders data as space separated byte pairs.
func hexDump(data []byte) string {
	var b bytes.Buffer
	for i, c := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", c)
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
