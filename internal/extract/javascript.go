package extract

// javascriptQuery mirrors the TypeScript query minus the type system nodes,
// with the JavaScript grammar's declaration shapes (class names are plain
// identifiers, parameters are bare identifiers).
const javascriptQuery = `
(function_declaration name: (identifier) @definition.function) @scope.function
(generator_function_declaration name: (identifier) @definition.function) @scope.function
(arrow_function) @scope.closure
(function_expression) @scope.closure

(class_declaration name: (identifier) @definition.class) @scope.class
(class_declaration name: (identifier) @definition.class (class_heritage (identifier) @class.extends)) @scope.class
(method_definition name: (property_identifier) @definition.method) @scope.method
(field_definition property: (property_identifier) @definition.field)

(variable_declarator name: (identifier) @definition.variable)
(variable_declarator name: (identifier) @binding.name value: (new_expression constructor: (identifier) @binding.ctor @reference.construct))
(variable_declarator name: (identifier) @collection.name value: (object) @collection.value)
(variable_declarator name: (identifier) @collection.name value: (array) @collection.value)

(formal_parameters (identifier) @definition.parameter)

(statement_block) @scope.block

(import_statement) @import.statement
(export_statement) @export.statement

(call_expression function: (identifier) @reference.call)
(call_expression function: (member_expression object: (_) @reference.receiver property: (property_identifier) @reference.method))
(new_expression constructor: (identifier) @reference.construct)
(member_expression object: (_) @reference.receiver property: (property_identifier) @reference.member)
(assignment_expression left: (identifier) @reference.assignment)
(return_statement (identifier) @reference.return)
(identifier) @reference.read
`

var javascriptSpec = langSpec{
	query:      javascriptQuery,
	isExported: isExportedJS,
	walkImport: walkImportJS,
	walkExport: walkExportJS,
}
