// Package ir provides the canonical data model for operator test fixtures.
//
// This package contains type definitions, literal coercion and canonical
// serialization only. All other internal packages import ir; ir imports
// nothing internal. This keeps ir the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Literals are a sealed tagged union (IntLiteral, FloatLiteral, BoolLiteral)
//   - A literal is always stored coerced to its declared ElementType
//   - All JSON keys use snake_case
//   - Entities are immutable once a Model is built; accessors return copies
package ir
