package typelib

import (
	"fmt"
	"strings"
)

// Signature returns the JNI type signature.
//
//	java.lang.String   -> Ljava/lang/String;
//	java.lang.String[] -> [Ljava/lang/String;
//	int[][]            -> [[I
func (t *Type) Signature() string {
	switch t.kind {
	case Array:
		return "[" + t.elem.Signature()
	case Object:
		return "L" + strings.ReplaceAll(t.name, ".", "/") + ";"
	}
	return string(t.code)
}

// SimpleSignature strips the L...; wrapper from non-array object types.
// The Android NDK's FindClass cannot resolve the wrapped form.
//
//	java.lang.String   -> java/lang/String
//	java.lang.String[] -> [Ljava/lang/String;
func (t *Type) SimpleSignature() string {
	sig := t.Signature()
	if t.kind == Object {
		return strings.TrimSuffix(strings.TrimPrefix(sig, "L"), ";")
	}
	return sig
}

// ParseSignature decodes a single JNI field signature back to a dotted type
// name. It is the inverse of Signature.
func ParseSignature(sig string) (string, error) {
	name, rest, err := parseOne(sig)
	if err != nil {
		return "", err
	}
	if rest != "" {
		return "", fmt.Errorf("typelib: trailing data %q in signature %q", rest, sig)
	}
	return name, nil
}

func parseOne(sig string) (name, rest string, err error) {
	if sig == "" {
		return "", "", fmt.Errorf("typelib: empty signature")
	}
	switch c := sig[0]; c {
	case '[':
		elem, rest, err := parseOne(sig[1:])
		if err != nil {
			return "", "", err
		}
		return elem + "[]", rest, nil
	case 'L':
		end := strings.IndexByte(sig, ';')
		if end < 0 {
			return "", "", fmt.Errorf("typelib: unterminated class signature %q", sig)
		}
		return strings.ReplaceAll(sig[1:end], "/", "."), sig[end+1:], nil
	default:
		if p, ok := primitiveNames[c]; ok {
			return p, sig[1:], nil
		}
		return "", "", fmt.Errorf("typelib: bad signature %q", sig)
	}
}

// ParseMethodSignature splits a JNI method signature into parameter and
// return type names.
func ParseMethodSignature(sig string) (params []string, ret string, err error) {
	if !strings.HasPrefix(sig, "(") {
		return nil, "", fmt.Errorf("typelib: bad method signature %q", sig)
	}
	rest := sig[1:]
	for !strings.HasPrefix(rest, ")") {
		var p string
		p, rest, err = parseOne(rest)
		if err != nil {
			return nil, "", err
		}
		params = append(params, p)
	}
	ret, err = ParseSignature(rest[1:])
	return params, ret, err
}

// MethodSignature builds the JNI signature for the given parameter and return
// type names.
func (r *Resolver) MethodSignature(args []string, returnType string) (string, error) {
	var b strings.Builder
	b.WriteByte('(')
	for _, a := range args {
		t, err := r.Resolve(a)
		if err != nil {
			return "", err
		}
		b.WriteString(t.Signature())
	}
	b.WriteByte(')')
	if returnType == "" {
		returnType = "void"
	}
	ret, err := r.Resolve(returnType)
	if err != nil {
		return "", err
	}
	b.WriteString(ret.Signature())
	return b.String(), nil
}

// ClassSignature returns the FindClass name for a class: the simple form on
// android, the full signature elsewhere.
func (r *Resolver) ClassSignature(class, platform string) (string, error) {
	t, err := r.Resolve(class)
	if err != nil {
		return "", err
	}
	if platform == "android" {
		return t.SimpleSignature(), nil
	}
	return t.Signature(), nil
}
