package schema

import (
	"encoding/json"
	"strings"

	js "github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/llmcore/errs"
	"goa.design/llmcore/model"
)

// JSONModeDecision is the outcome of ValidateJSONMode: whether the caller
// needs to fall back to a prompt-injected JSON instruction because the model
// lacks a native structured-output capability.
type JSONModeDecision struct {
	UsePromptInjection bool
}

// ValidateJSONMode implements the jsonMode policy from params.Settings
// against the resolved model's capabilities. With native-only and no native
// JSON capability it fails outright; force-prompt always injects; fallback
// injects only when native support is absent.
func ValidateJSONMode(modelInfo model.Info, jsonMode model.JSONMode) (JSONModeDecision, error) {
	nativeJSON := hasNativeJSON(modelInfo)

	switch jsonMode {
	case model.JSONModeNativeOnly:
		if !nativeJSON {
			return JSONModeDecision{}, errs.New(errs.KindValidation, "ValidateJSONMode",
				"model "+modelInfo.Name+" has no native JSON output capability and jsonMode=native-only")
		}
		return JSONModeDecision{UsePromptInjection: false}, nil
	case model.JSONModeForcePrompt:
		return JSONModeDecision{UsePromptInjection: true}, nil
	case model.JSONModeFallback:
		return JSONModeDecision{UsePromptInjection: !nativeJSON}, nil
	default:
		return JSONModeDecision{UsePromptInjection: !nativeJSON}, nil
	}
}

func hasNativeJSON(info model.Info) bool {
	for _, f := range info.Capabilities.Output.TextOutputFormats {
		if f == "json" {
			return true
		}
	}
	return false
}

// ValidateResponse implements ResponseProcessor.validateResponse: it parses
// response content as JSON (repairing it if merely malformed), optionally
// unwraps a single top-level key matching the schema name, and validates the
// result against the caller's schema. Schema-validation failures are not
// returned as errors: they surface as metadata.finishReason=content-filter
// with validationErrors attached, per the UniversalChatResponse invariant.
// Content that is neither valid nor repairable JSON returns an
// errs.KindJSONParse error.
func ValidateResponse(content string, schemaName string, compiled *js.Schema, wantJSON bool) (contentObject any, meta model.Metadata, err error) {
	if !wantJSON {
		return nil, model.Metadata{}, nil
	}

	parsed, repaired, perr := parseOrRepair(content)
	if perr != nil {
		return nil, model.Metadata{}, errs.Wrap(errs.KindJSONParse, "ValidateResponse", "content is not valid or repairable JSON", perr)
	}
	if repaired {
		meta.JSONRepaired = true
		meta.OriginalContent = content
	}

	parsed = unwrapSingleKey(parsed, schemaName)

	if compiled != nil {
		if verr := compiled.Validate(parsed); verr != nil {
			meta.FinishReason = model.FinishContentFilter
			meta.ValidationErrors = flattenValidationError(verr)
			return parsed, meta, nil
		}
	}
	meta.FinishReason = model.FinishStop
	return parsed, meta, nil
}

// unwrapSingleKey implements step 3: if schemaName is set and the parsed
// object has exactly one key equal to it (case-insensitively), unwrap that
// key's value.
func unwrapSingleKey(parsed any, schemaName string) any {
	if schemaName == "" {
		return parsed
	}
	obj, ok := parsed.(map[string]any)
	if !ok || len(obj) != 1 {
		return parsed
	}
	for k, v := range obj {
		if strings.EqualFold(k, schemaName) {
			return v
		}
	}
	return parsed
}

func parseOrRepair(content string) (any, bool, error) {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err == nil {
		return v, false, nil
	}
	if !likelyRepairable(content) {
		return nil, false, errs.New(errs.KindJSONParse, "parseOrRepair", "content does not look like JSON")
	}
	return Repair(content)
}

// likelyRepairable applies the spec's cheap pre-filter: the trimmed string
// must start/end with a matching bracket pair before we pay for a repair
// pass.
func likelyRepairable(s string) bool {
	t := strings.TrimSpace(s)
	if len(t) < 2 {
		return false
	}
	first, last := t[0], t[len(t)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}
