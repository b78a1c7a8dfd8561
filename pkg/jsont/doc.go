// Package jsont compiles JSON-Template source into an instruction tree and
// executes that tree against JSON data to produce text.
//
// Basic Usage:
//
//	formatters, predicates := plugins.Defaults()
//	compiler := jsont.NewCompiler(formatters, predicates)
//
//	tmpl, err := compiler.Compile("{.section user}Hello {name}!{.end}", jsont.CompileOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	data := node.MustDecode(`{"user": {"name": "Ada"}}`)
//	out, err := compiler.Execute(jsont.NewContext(data), tmpl)
//
// Compiled templates are immutable and may be executed concurrently; a
// Context belongs to exactly one render.
//
// Template Syntax:
//
// Variables: {name}, {user.email|html}, {a,b|format}
//
// Sections: {.section user}...{.or}...{.end}
//
// Loops: {.repeated section items}{@}{.alternates with}, {.end}
//
// Conditionals: {.if a && b}...{.end}, {.equal? a b}...{.or}...{.end}
//
// Locals: {.var @x name|formatter}, {.ctx @obj key=path}, {.eval @y = x * 2}
//
// Partials and macros: {.macro name}...{.end}, {name|apply partial}, {.include name}
//
// Errors:
//
// Compilation runs in ModeStrict, returning the first *CodeSyntaxError, or
// ModeCollect, recording every error while degrading broken instructions
// to text. Execution fails fast unless WithSafeExecution is given, in which
// case failures are recorded on the Context and rendering continues.
// Reaching the hard code limit and recursive partials are always fatal.
package jsont
