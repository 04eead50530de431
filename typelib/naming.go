package typelib

import (
	"regexp"
	"strconv"
	"strings"
)

// SanitizeSymbolName turns a dotted or signature-bearing name into a C
// identifier by replacing every character outside [A-Za-z0-9_] with '_'.
func SanitizeSymbolName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var (
	mangleBrackets = regexp.MustCompile(`[\[\]]`)
	mangleArity    = regexp.MustCompile("`\\d")
	mangleSpace    = regexp.MustCompile(`\s`)
	manglePunct    = regexp.MustCompile("[`()\\s,.;/]")
)

// MangleSignature turns a JNI method signature into an identifier suffix.
//
//	()V                   -> _V
//	(I)V                  -> _I_V
//	([C)Ljava/lang/String; -> _$C_Ljava_lang_String_
func MangleSignature(sig string) string {
	s := mangleBrackets.ReplaceAllString(sig, "$$")
	s = strings.Replace(s, "()", "_", 1)
	if loc := mangleArity.FindStringIndex(s); loc != nil {
		s = s[:loc[0]] + s[loc[1]:]
	}
	s = mangleSpace.ReplaceAllString(s, "")
	s = manglePunct.ReplaceAllString(s, "_")
	s = strings.ReplaceAll(s, "^", "")
	return strings.ReplaceAll(s, "*", "")
}

// MethodName is the bridge symbol prefix for a member of class.
func MethodName(class, member string) string {
	return SanitizeSymbolName(class) + "_" + member
}

// ConstructorName is the bridge symbol prefix for the constructors of class.
func ConstructorName(class string) string {
	return MethodName(class, "constructor")
}

// ImplicitConstructorName is the bridge function for new X(...) with argc
// arguments and no explicit overload; it picks the overload at runtime.
func ImplicitConstructorName(class string, argc int) string {
	if argc == 0 {
		return ConstructorName(class)
	}
	return ConstructorName(class) + "_" + strconv.Itoa(argc)
}

// ConstructorSymbolName is the bridge function for one explicitly selected
// constructor overload, e.g. java_lang_Double_constructor__D_V.
func ConstructorSymbolName(class, sig string) string {
	return ConstructorName(class) + "_" + MangleSignature(sig)
}

// ActionName is the script callback bound to overload i of a custom class
// method with an attached action.
func ActionName(class, method string, i int) string {
	return SanitizeSymbolName(class) + "_Action_" + method + "_" + strconv.Itoa(i)
}

// ActionSlot is the static long member holding the script callback for
// overload i of method; the exception slot is ActionSlot + "_E".
func ActionSlot(method string, i int) string {
	return "HL_" + method + "_" + strconv.Itoa(i)
}

// NativeMethodName is the JNI export name for a native method of class.
func NativeMethodName(class, method string) string {
	return "Java_" + jniEscape(class, true) + "_" + jniEscape(method, false)
}

func jniEscape(s string, dotted bool) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '_':
			b.WriteString("_1")
		case r == '$':
			b.WriteString("_00024")
		case r == '.' && dotted:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ClassFilename is the bridge source file generated for class.
func ClassFilename(class string) string {
	return "HL_" + SanitizeSymbolName(class) + ".cpp"
}
