package numbers

import (
	"sync"

	"github.com/trustfall/trustfall-go/internal/schema"
)

// SchemaText is the SDL schema of the integer graph.
const SchemaText = `
schema {
    query: RootSchemaQuery
}
directive @filter(op: String!, value: [String!]) repeatable on FIELD | INLINE_FRAGMENT
directive @tag(name: String) on FIELD
directive @output(name: String) on FIELD
directive @optional on FIELD
directive @recurse(depth: Int!) on FIELD
directive @fold on FIELD
directive @transform(op: String!) on FIELD

type RootSchemaQuery {
    Zero: Neither!
    One: Neither!
    Two: Prime!
    Four: Composite!
    Number(min: Int = 0, max: Int!): [Number!]
}

interface Number {
    value: Int
    name: String
    vowelsInName: [String]

    predecessor: Number
    successor: Number!
    multiple(max: Int!): [Composite!]
    primeFactor: [Prime!]
}

type Prime implements Number {
    value: Int
    name: String
    vowelsInName: [String]

    predecessor: Number
    successor: Number!
    multiple(max: Int!): [Composite!]
    primeFactor: [Prime!]
}

type Composite implements Number {
    value: Int
    name: String
    vowelsInName: [String]

    predecessor: Number
    successor: Number!
    multiple(max: Int!): [Composite!]
    primeFactor: [Prime!]
}

type Neither implements Number {
    value: Int
    name: String
    vowelsInName: [String]

    predecessor: Number
    successor: Number!
    multiple(max: Int!): [Composite!]
    primeFactor: [Prime!]
}
`

var (
	schemaOnce   sync.Once
	parsedSchema *schema.Schema
	schemaErr    error
)

// Schema parses SchemaText once and returns it.
func Schema() (*schema.Schema, error) {
	schemaOnce.Do(func() {
		parsedSchema, schemaErr = schema.Parse("numbers", SchemaText)
	})
	return parsedSchema, schemaErr
}
