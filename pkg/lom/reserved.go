package lom

import "strings"

// reservedWords are keywords that must be quoted when used as identifiers.
var reservedWords = map[string]struct{}{
	"ADD": {}, "ALL": {}, "ALTER": {}, "AND": {}, "ANY": {}, "ARRAY": {}, "AS": {}, "ASC": {},
	"ATOMIC": {}, "AUTHORIZATION": {}, "BEGIN": {}, "BETWEEN": {}, "BIGINT": {}, "BINARY": {},
	"BLOB": {}, "BOOLEAN": {}, "BOTH": {}, "BREAK": {}, "BY": {}, "CALL": {}, "CALLED": {},
	"CASCADED": {}, "CASE": {}, "CAST": {}, "CHAR": {}, "CHARACTER": {}, "CHECK": {}, "CLOB": {},
	"CLOSE": {}, "COLLATE": {}, "COLUMN": {}, "COMMIT": {}, "CONNECT": {}, "CONSTRAINT": {},
	"CONTINUE": {}, "CONVERT": {}, "CORRESPONDING": {}, "CREATE": {}, "CRITERIA": {}, "CROSS": {},
	"CURRENT_DATE": {}, "CURRENT_TIME": {}, "CURRENT_TIMESTAMP": {}, "CURRENT_USER": {},
	"CURSOR": {}, "CYCLE": {}, "DATE": {}, "DAY": {}, "DEALLOCATE": {}, "DEC": {}, "DECIMAL": {},
	"DECLARE": {}, "DEFAULT": {}, "DELETE": {}, "DESC": {}, "DESCRIBE": {}, "DETERMINISTIC": {},
	"DISCONNECT": {}, "DISTINCT": {}, "DOUBLE": {}, "DROP": {}, "EACH": {}, "ELSE": {}, "END": {},
	"ERROR": {}, "ESCAPE": {}, "EXCEPT": {}, "EXEC": {}, "EXECUTE": {}, "EXISTS": {},
	"EXTERNAL": {}, "FALSE": {}, "FETCH": {}, "FILTER": {}, "FLOAT": {}, "FOR": {}, "FOREIGN": {},
	"FROM": {}, "FULL": {}, "FUNCTION": {}, "GET": {}, "GLOBAL": {}, "GRANT": {}, "GROUP": {},
	"HAS": {}, "HAVING": {}, "HOLD": {}, "HOUR": {}, "IDENTITY": {}, "IF": {}, "IMMEDIATE": {},
	"IN": {}, "INDICATOR": {}, "INNER": {}, "INOUT": {}, "INPUT": {}, "INSENSITIVE": {},
	"INSERT": {}, "INTEGER": {}, "INTERSECT": {}, "INTERVAL": {}, "INTO": {}, "IS": {},
	"ISOLATION": {}, "JOIN": {}, "LANGUAGE": {}, "LARGE": {}, "LEADING": {}, "LEAVE": {},
	"LEFT": {}, "LIKE": {}, "LIKE_REGEX": {}, "LIMIT": {}, "LOCAL": {}, "LOOP": {}, "MAKEDEP": {},
	"MAKENOTDEP": {}, "MATCH": {}, "MERGE": {}, "METHOD": {}, "MINUTE": {}, "MODIFIES": {},
	"MODULE": {}, "MONTH": {}, "NATURAL": {}, "NEW": {}, "NO": {}, "NOCACHE": {}, "NONE": {},
	"NOT": {}, "NULL": {}, "OBJECT": {}, "OF": {}, "OFFSET": {}, "OLD": {}, "ON": {}, "ONLY": {},
	"OPEN": {}, "OPTION": {}, "OR": {}, "ORDER": {}, "OUT": {}, "OUTER": {}, "OUTPUT": {},
	"OVER": {}, "OVERLAPS": {}, "PARAMETER": {}, "PARTITION": {}, "PRECISION": {}, "PREPARE": {},
	"PRIMARY": {}, "PROCEDURE": {}, "RANGE": {}, "READS": {}, "REAL": {}, "RECURSIVE": {},
	"REFERENCES": {}, "REFERENCING": {}, "RELEASE": {}, "RETURN": {}, "RETURNS": {}, "REVOKE": {},
	"RIGHT": {}, "ROLLBACK": {}, "ROLLUP": {}, "ROW": {}, "ROWS": {}, "SAVEPOINT": {},
	"SCROLL": {}, "SEARCH": {}, "SECOND": {}, "SELECT": {}, "SENSITIVE": {}, "SESSION_USER": {},
	"SET": {}, "SIMILAR": {}, "SMALLINT": {}, "SOME": {}, "SPECIFIC": {}, "SPECIFICTYPE": {},
	"SQL": {}, "SQLEXCEPTION": {}, "SQLSTATE": {}, "SQLWARNING": {}, "START": {}, "STATIC": {},
	"SYSTEM": {}, "SYSTEM_USER": {}, "TABLE": {}, "TEMPORARY": {}, "THEN": {}, "TIME": {},
	"TIMESTAMP": {}, "TIMEZONE_HOUR": {}, "TIMEZONE_MINUTE": {}, "TO": {}, "TRAILING": {},
	"TRANSLATE": {}, "TRANSLATION": {}, "TREAT": {}, "TRIGGER": {}, "TRUE": {}, "UNION": {},
	"UNIQUE": {}, "UNKNOWN": {}, "UPDATE": {}, "UPSERT": {}, "USER": {}, "USING": {},
	"VALUE": {}, "VALUES": {}, "VARBINARY": {}, "VARCHAR": {}, "VARYING": {}, "VIRTUAL": {},
	"WHEN": {}, "WHENEVER": {}, "WHERE": {}, "WHILE": {}, "WINDOW": {}, "WITH": {}, "WITHIN": {},
	"WITHOUT": {}, "XML": {}, "XMLAGG": {}, "XMLATTRIBUTES": {}, "XMLCOMMENT": {},
	"XMLCONCAT": {}, "XMLELEMENT": {}, "XMLFOREST": {}, "XMLNAMESPACES": {}, "XMLPARSE": {},
	"XMLPI": {}, "XMLQUERY": {}, "XMLSERIALIZE": {}, "XMLTABLE": {}, "XMLTEXT": {}, "YEAR": {},
}

// IsReservedWord reports whether word is a reserved keyword, ignoring case.
func IsReservedWord(word string) bool {
	_, ok := reservedWords[strings.ToUpper(word)]
	return ok
}
