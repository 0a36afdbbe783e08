// Package driver orchestrates the compiler pipeline end to end: lex, parse,
// build the symbol table, type-check, generate IR, optimise, emit bytecode,
// and serialise — in the strict sequential order spec §5 requires, refusing
// to advance once the diagnostic sink has recorded an error (spec §7).
package driver

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"minij/internal/bytecode"
	"minij/internal/diag"
	"minij/internal/dump"
	"minij/internal/ir"
	"minij/internal/lexer"
	"minij/internal/parser"
	"minij/internal/sema"
)

// ExitCode mirrors spec §6's compiler exit-code taxonomy.
type ExitCode int

const (
	ExitSuccess      ExitCode = 0
	ExitLexicalError ExitCode = 1
	ExitSyntaxError  ExitCode = 2
	ExitASTError     ExitCode = 3 // reserved, never produced
	ExitSemanticError ExitCode = 4
)

// Result carries everything a caller needs after a successful compile: the
// serialised bytecode plus the Graphviz dumps, so cmd/compiler can write
// them to the output/ directory the spec's CLI contract names.
type Result struct {
	Bytecode []byte
	TreeDot  string
	CFGDot   string
	STDot    string
}

// Compile runs the full pipeline over source and returns either a Result or
// an ExitCode identifying which stage failed. buildID correlates this run's
// log lines (useful when a batch of files is compiled in one process, which
// the CLI never does today but the pipeline is not coupled to that
// assumption).
func Compile(source string, logger *zap.Logger) (*Result, ExitCode) {
	if logger == nil {
		logger = zap.NewNop()
	}
	buildID := uuid.New().String()
	log := logger.With(zap.String("build_id", buildID))

	sink := diag.New(os.Stderr)

	log.Debug("lexing")
	lex := lexer.New(source, sink)

	log.Debug("parsing")
	p := parser.New(lex, sink)
	prog, err := p.Parse()
	if err != nil {
		// The parser reports only its first syntax error to the sink, so any
		// further error recorded there came from the lexer.
		if sink.ErrorCount() > 1 {
			log.Info("lexical error", zap.Error(err))
			return nil, ExitLexicalError
		}
		log.Info("syntax error", zap.Error(err))
		return nil, ExitSyntaxError
	}
	if sink.HasErrors() {
		return nil, ExitLexicalError
	}

	log.Debug("building symbol table")
	root := sema.BuildSymbolTable(prog, sink)
	if sink.HasErrors() {
		return nil, ExitSemanticError
	}

	log.Debug("type checking")
	info := sema.CheckProgram(prog, root, sink)
	if sink.HasErrors() {
		return nil, ExitSemanticError
	}

	log.Debug("generating IR")
	cfg := ir.Generate(prog, info, root)

	log.Debug("running optimisation passes")
	pm := ir.NewPassManager()
	pm.Run(cfg)

	log.Debug("emitting bytecode")
	bcProg := bytecode.Emit(cfg, root)

	data, err := bytecode.Serialize(bcProg)
	if err != nil {
		log.Error("serialisation failed", zap.Error(err))
		return nil, ExitSemanticError
	}

	return &Result{
		Bytecode: data,
		TreeDot:  dump.TreeDot(prog),
		CFGDot:   dump.CFGDot(cfg),
		STDot:    dump.SymbolTableDot(root),
	}, ExitSuccess
}

// ReadSource reads the compiler's input from path, or from stdin when path
// is empty, wrapping I/O failures with a stack trace per spec §7's "I/O
// error: propagate, exit immediately" row.
func ReadSource(path string) (string, error) {
	var data []byte
	var err error
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading source from %s", sourceDesc(path))
	}
	return string(data), nil
}

func sourceDesc(path string) string {
	if path == "" {
		return "stdin"
	}
	return path
}

// WriteOutputs writes the four files spec §6 names into dir, creating it if
// necessary.
func WriteOutputs(dir string, res *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	files := map[string]string{
		"tree.dot": res.TreeDot,
		"cfg.dot":  res.CFGDot,
		"st.dot":   res.STDot,
	}
	for name, content := range files {
		if err := os.WriteFile(dirJoin(dir, name), []byte(content), 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", name)
		}
	}
	if err := os.WriteFile(dirJoin(dir, "prog.bc"), res.Bytecode, 0o644); err != nil {
		return errors.Wrap(err, "writing prog.bc")
	}
	return nil
}

func dirJoin(dir, name string) string {
	if dir == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", dir, name)
}
