// Package schema describes script documents as JSON Schema and validates them.
//
// The schema is generated from the Go document types with invopop/jsonschema
// and compiled once with santhosh-tekuri/jsonschema. Validation runs on the
// generic decoded document (JSON, or YAML normalized to JSON) before it is
// decoded into typed parameters, so structural mistakes are reported with the
// exact location that caused them:
//
//	if err := schema.Validate(doc); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        fmt.Println(e)
//	    }
//	}
//
// Unknown keys are tolerated everywhere; scripts written for richer runtimes
// keep loading.
package schema
