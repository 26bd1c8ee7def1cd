package classify

import (
	"strings"

	"github.com/tidwall/gjson"
)

var (
	messagePaths = []string{"message", "error.message", "error", "detail", "title"}
	fieldPaths   = []string{"errors", "fieldErrors", "field_errors", "error.details"}
)

// bodyMessage extracts an explicit human-readable message from a JSON body.
func bodyMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range messagePaths {
		r := gjson.GetBytes(body, path)
		if r.Type == gjson.String {
			if msg := strings.TrimSpace(r.String()); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// bodyFieldErrors extracts per-field messages from a JSON body. Both the
// object form {"email": ["taken"]} and the list form
// [{"field": "email", "message": "taken"}] are understood.
func bodyFieldErrors(body []byte) map[string][]string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil
	}
	for _, path := range fieldPaths {
		r := gjson.GetBytes(body, path)
		var fields map[string][]string
		switch {
		case r.IsObject():
			fields = objectFields(r)
		case r.IsArray():
			fields = listFields(r)
		}
		if len(fields) > 0 {
			return fields
		}
	}
	return nil
}

func objectFields(r gjson.Result) map[string][]string {
	fields := make(map[string][]string)
	r.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if value.IsArray() {
			for _, v := range value.Array() {
				fields = appendField(fields, name, v.String())
			}
			return true
		}
		if value.Type == gjson.String {
			fields = appendField(fields, name, value.String())
		}
		return true
	})
	return fields
}

func listFields(r gjson.Result) map[string][]string {
	fields := make(map[string][]string)
	for _, item := range r.Array() {
		if !item.IsObject() {
			continue
		}
		name := item.Get("field").String()
		msg := item.Get("message").String()
		fields = appendField(fields, name, msg)
	}
	return fields
}

func appendField(fields map[string][]string, name, msg string) map[string][]string {
	msg = strings.TrimSpace(msg)
	if name == "" || msg == "" {
		return fields
	}
	fields[name] = append(fields[name], msg)
	return fields
}
