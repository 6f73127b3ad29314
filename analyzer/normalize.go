package analyzer

import "strings"

// Python standard library top-level modules
var pythonStdlib = map[string]bool{
	"__future__": true, "abc": true, "argparse": true, "array": true, "ast": true,
	"asyncio": true, "base64": true, "bisect": true, "builtins": true, "calendar": true,
	"collections": true, "concurrent": true, "configparser": true, "contextlib": true,
	"copy": true, "csv": true, "ctypes": true, "dataclasses": true, "datetime": true,
	"decimal": true, "difflib": true, "email": true, "enum": true, "fractions": true,
	"functools": true, "getpass": true, "glob": true, "gzip": true, "hashlib": true,
	"heapq": true, "hmac": true, "html": true, "http": true, "importlib": true,
	"inspect": true, "io": true, "ipaddress": true, "itertools": true, "json": true,
	"logging": true, "math": true, "mimetypes": true, "multiprocessing": true,
	"operator": true, "os": true, "pathlib": true, "pickle": true, "platform": true,
	"pprint": true, "queue": true, "random": true, "re": true, "secrets": true,
	"shlex": true, "shutil": true, "signal": true, "socket": true, "sqlite3": true,
	"ssl": true, "statistics": true, "string": true, "struct": true, "subprocess": true,
	"sys": true, "tempfile": true, "textwrap": true, "threading": true, "time": true,
	"traceback": true, "types": true, "typing": true, "unittest": true, "urllib": true,
	"uuid": true, "warnings": true, "weakref": true, "xml": true, "zipfile": true,
	"zlib": true,
}

// Import names whose distribution is published under another name.
var distributionAliases = map[string][]string{
	"MySQLdb":  {"mysqlclient"},
	"psycopg2": {"psycopg2-binary"},
	"yaml":     {"pyyaml"},
	"jwt":      {"pyjwt"},
	"sklearn":  {"scikit-learn"},
	"PIL":      {"pillow"},
	"dotenv":   {"python-dotenv"},
}

// normalizeImportName reduces an import source to its top-level package and
// filters out the standard library and unresolved relative imports.
func normalizeImportName(source string) string {
	if source == "" || strings.HasPrefix(source, ".") {
		return ""
	}
	top := topLevel(source)
	if pythonStdlib[top] || top == "__init__" {
		return ""
	}
	return top
}
