package extract

// typescriptQuery is the master capture query for TypeScript sources. The
// capture vocabulary follows the canonical @category.entity grammar; the
// import/export statement internals are handled by the shared walkers.
const typescriptQuery = `
(function_declaration name: (identifier) @definition.function) @scope.function
(function_declaration name: (identifier) @definition.function return_type: (type_annotation) @binding.return) @scope.function
(generator_function_declaration name: (identifier) @definition.function) @scope.function
(arrow_function) @scope.closure
(function_expression) @scope.closure

(class_declaration name: (type_identifier) @definition.class) @scope.class
(class_declaration name: (type_identifier) @definition.class (class_heritage (extends_clause (identifier) @class.extends))) @scope.class
(interface_declaration name: (type_identifier) @definition.interface) @scope.interface
(interface_declaration name: (type_identifier) @definition.interface (extends_type_clause (type_identifier) @class.extends)) @scope.interface
(enum_declaration name: (identifier) @definition.enum) @scope.enum
(internal_module name: (identifier) @definition.namespace) @scope.namespace
(type_alias_declaration name: (type_identifier) @definition.type_alias)

(method_definition name: (property_identifier) @definition.method) @scope.method
(public_field_definition name: (property_identifier) @definition.field)
(public_field_definition name: (property_identifier) @binding.name type: (type_annotation) @binding.type)
(method_signature name: (property_identifier) @definition.method)
(property_signature name: (property_identifier) @definition.property)
(enum_body (property_identifier) @definition.enum_member)
(enum_assignment name: (property_identifier) @definition.enum_member)

(variable_declarator name: (identifier) @definition.variable)
(variable_declarator name: (identifier) @binding.name type: (type_annotation) @binding.type)
(variable_declarator name: (identifier) @binding.name value: (new_expression constructor: (identifier) @binding.ctor @reference.construct))
(variable_declarator name: (identifier) @collection.name value: (object) @collection.value)
(variable_declarator name: (identifier) @collection.name value: (array) @collection.value)

(required_parameter pattern: (identifier) @definition.parameter)
(required_parameter pattern: (identifier) @binding.name type: (type_annotation) @binding.type)
(optional_parameter pattern: (identifier) @definition.parameter)

(statement_block) @scope.block

(import_statement) @import.statement
(export_statement) @export.statement

(call_expression function: (identifier) @reference.call)
(call_expression function: (member_expression object: (_) @reference.receiver property: (property_identifier) @reference.method))
(new_expression constructor: (identifier) @reference.construct)
(member_expression object: (_) @reference.receiver property: (property_identifier) @reference.member)
(type_annotation (type_identifier) @reference.type)
(type_annotation (generic_type name: (type_identifier) @reference.type))
(assignment_expression left: (identifier) @reference.assignment)
(return_statement (identifier) @reference.return)
(identifier) @reference.read
`

var typescriptSpec = langSpec{
	query:      typescriptQuery,
	isExported: isExportedJS,
	walkImport: walkImportJS,
	walkExport: walkExportJS,
}
