package cst

// NodeKind identifies a syntax node produced by the external parser.
// The vocabulary mirrors the tree-sitter grammar; kinds the lowering does not
// recognize map to KindUnknown and lower to placeholders.
type NodeKind uint16

const (
	KindUnknown NodeKind = iota

	// Structure.
	KindSourceFile
	KindFunctionItem
	KindStructItem
	KindEnumItem
	KindTraitItem
	KindImplItem
	KindExternBlock
	KindUseDecl
	KindModuleItem

	// Item pieces.
	KindVisibility
	KindName
	KindParameter
	KindGenericParams
	KindGenericParam
	KindTypeArgs
	KindWhereClause
	KindWherePred
	KindTraitBounds
	KindTraitRef
	KindReturnType
	KindFieldDecl
	KindEnumVariant
	KindAssocType
	KindAssocTypeBinding
	KindAbi
	KindMut
	KindSelfParam

	// Statements.
	KindBlock
	KindLetStatement
	KindExprStatement
	KindReturnStatement

	// Expressions.
	KindIntLiteral
	KindFloatLiteral
	KindBoolLiteral
	KindStringLiteral
	KindUnitLiteral
	KindIdentifier
	KindPathExpr
	KindBinaryExpr
	KindUnaryExpr
	KindOperator
	KindCallExpr
	KindMethodCall
	KindFieldAccess
	KindIndexExpr
	KindRefExpr
	KindDerefExpr
	KindAssignExpr
	KindIfExpr
	KindWhileExpr
	KindMatchExpr
	KindMatchArm
	KindClosureExpr
	KindStructExpr
	KindFieldInit
	KindTupleExpr
	KindArrayExpr

	// Patterns.
	KindWildcardPattern
	KindLiteralPattern
	KindIdentifierPattern
	KindTuplePattern
	KindStructPattern
	KindFieldPattern
	KindEnumPattern
	KindOrPattern
	KindRangePattern

	// Types.
	KindNamedType
	KindTupleType
	KindReferenceType
	KindFunctionType
	KindInferredType
)

var kindNames = map[NodeKind]string{
	KindUnknown: "unknown",

	KindSourceFile:   "source_file",
	KindFunctionItem: "function_item",
	KindStructItem:   "struct_item",
	KindEnumItem:     "enum_item",
	KindTraitItem:    "trait_item",
	KindImplItem:     "impl_item",
	KindExternBlock:  "extern_block",
	KindUseDecl:      "use_declaration",
	KindModuleItem:   "module_item",

	KindVisibility:       "visibility_modifier",
	KindName:             "name",
	KindParameter:        "parameter",
	KindGenericParams:    "generic_params",
	KindGenericParam:     "generic_param",
	KindTypeArgs:         "type_arguments",
	KindWhereClause:      "where_clause",
	KindWherePred:        "where_predicate",
	KindTraitBounds:      "trait_bounds",
	KindTraitRef:         "trait_ref",
	KindReturnType:       "return_type",
	KindFieldDecl:        "field_declaration",
	KindEnumVariant:      "enum_variant",
	KindAssocType:        "associated_type",
	KindAssocTypeBinding: "associated_type_binding",
	KindAbi:              "abi",
	KindMut:              "mutable_specifier",
	KindSelfParam:        "self_parameter",

	KindBlock:           "block",
	KindLetStatement:    "let_statement",
	KindExprStatement:   "expression_statement",
	KindReturnStatement: "return_statement",

	KindIntLiteral:    "integer_literal",
	KindFloatLiteral:  "float_literal",
	KindBoolLiteral:   "boolean_literal",
	KindStringLiteral: "string_literal",
	KindUnitLiteral:   "unit_literal",
	KindIdentifier:    "identifier",
	KindPathExpr:      "path_expression",
	KindBinaryExpr:    "binary_expression",
	KindUnaryExpr:     "unary_expression",
	KindOperator:      "operator",
	KindCallExpr:      "call_expression",
	KindMethodCall:    "method_call_expression",
	KindFieldAccess:   "field_expression",
	KindIndexExpr:     "index_expression",
	KindRefExpr:       "reference_expression",
	KindDerefExpr:     "dereference_expression",
	KindAssignExpr:    "assignment_expression",
	KindIfExpr:        "if_expression",
	KindWhileExpr:     "while_expression",
	KindMatchExpr:     "match_expression",
	KindMatchArm:      "match_arm",
	KindClosureExpr:   "closure_expression",
	KindStructExpr:    "struct_expression",
	KindFieldInit:     "field_initializer",
	KindTupleExpr:     "tuple_expression",
	KindArrayExpr:     "array_expression",

	KindWildcardPattern:   "wildcard_pattern",
	KindLiteralPattern:    "literal_pattern",
	KindIdentifierPattern: "identifier_pattern",
	KindTuplePattern:      "tuple_pattern",
	KindStructPattern:     "struct_pattern",
	KindFieldPattern:      "field_pattern",
	KindEnumPattern:       "enum_pattern",
	KindOrPattern:         "or_pattern",
	KindRangePattern:      "range_pattern",

	KindNamedType:     "named_type",
	KindTupleType:     "tuple_type",
	KindReferenceType: "reference_type",
	KindFunctionType:  "function_type",
	KindInferredType:  "inferred_type",
}

var kindsByName = func() map[string]NodeKind {
	m := make(map[string]NodeKind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindFromString maps a parser node-kind name onto the internal enum.
// Unrecognized names yield KindUnknown; the lowering tolerates them.
func KindFromString(name string) NodeKind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindUnknown
}
