package diag

import (
	"fmt"
)

// Code identifies a diagnostic kind. Ranges are reserved per pass so that
// codes stay stable as new diagnostics are added.
type Code uint16

const (
	UnknownCode Code = 0

	// Лексические/синтаксические заглушки (малформленный CST).
	SynPlaceholder  Code = 1001
	SynUnknownNode  Code = 1002
	SynMissingChild Code = 1003
	SynBadLiteral   Code = 1004
	SynBadAbi       Code = 1005

	// Name resolution.
	ResUnknownName         Code = 2001
	ResDuplicateDefinition Code = 2002
	ResAmbiguousName       Code = 2003
	ResPrivateAccess       Code = 2004

	// Type inference.
	TypeMismatch          Code = 3001
	TypeOccursCheck       Code = 3002
	TypeArityMismatch     Code = 3003
	TypeUnknownField      Code = 3004
	TypeUnknownVariant    Code = 3005
	TypeAmbiguousReceiver Code = 3006
	TypeUnresolvedVar     Code = 3007

	// Trait bounds.
	BoundUnsatisfied            Code = 4001
	BoundMissingSupertraitImpl  Code = 4002
	BoundMissingAssociatedType  Code = 4003
	BoundUnsatisfiedWhereClause Code = 4004

	// Method resolution.
	MethodNoMatch            Code = 5001
	MethodAmbiguous          Code = 5002
	MethodMutabilityMismatch Code = 5003

	// Patterns.
	PatNonExhaustive     Code = 6001
	PatUnreachableArm    Code = 6002
	PatOrBindingMismatch Code = 6003
)

var codeNames = map[Code]string{
	UnknownCode: "Unknown",

	SynPlaceholder:  "SyntaxPlaceholder",
	SynUnknownNode:  "UnknownNode",
	SynMissingChild: "MissingChild",
	SynBadLiteral:   "BadLiteral",
	SynBadAbi:       "BadAbi",

	ResUnknownName:         "UnknownName",
	ResDuplicateDefinition: "DuplicateDefinition",
	ResAmbiguousName:       "AmbiguousName",
	ResPrivateAccess:       "PrivateAccess",

	TypeMismatch:          "TypeMismatch",
	TypeOccursCheck:       "OccursCheck",
	TypeArityMismatch:     "ArityMismatch",
	TypeUnknownField:      "UnknownField",
	TypeUnknownVariant:    "UnknownVariant",
	TypeAmbiguousReceiver: "AmbiguousReceiver",
	TypeUnresolvedVar:     "UnresolvedTypeVariable",

	BoundUnsatisfied:            "UnsatisfiedBound",
	BoundMissingSupertraitImpl:  "MissingSupertraitImpl",
	BoundMissingAssociatedType:  "MissingAssociatedType",
	BoundUnsatisfiedWhereClause: "UnsatisfiedWhereClause",

	MethodNoMatch:            "NoMatchingMethod",
	MethodAmbiguous:          "AmbiguousMethod",
	MethodMutabilityMismatch: "MutabilityMismatch",

	PatNonExhaustive:     "NonExhaustive",
	PatUnreachableArm:    "UnreachableArm",
	PatOrBindingMismatch: "OrPatternBindingMismatch",
}

// String returns the stable symbolic name used in JSON output and tests.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint16(c))
}
