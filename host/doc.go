// Package host is the default module resolver and loader that the
// pipeline hooks delegate to as "next".
//
// It follows Node's ES module rules closely enough for the pipeline to be
// meaningful: specifiers must be fully specified, .js files take their
// format from the nearest package.json "type" field, JSON imports need the
// "type: json" attribute, and files with unknown extensions are rejected.
// Bare specifiers are looked up in node_modules directories.
//
// Resolve has the signature of loader.NextResolve. (*Loader).Load has the
// signature of loader.NextLoad.
package host
