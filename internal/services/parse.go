package services

import (
	"encoding/json"
	"strings"

	"sunny-backend/internal/models"
)

// parsedReply is the canonical result of one assistant turn.
type parsedReply struct {
	Message        string
	CollectedData  models.CollectedData
	IsDataComplete bool
}

var fenceMarkers = strings.NewReplacer("```json", "", "```", "")

// parseAssistantReply turns raw model output into the reconciled turn result.
// The model is expected to answer with a single JSON object but routinely
// wraps it in code fences or commentary, or returns plain prose; anything
// that cannot be decoded degrades to treating the whole text as the
// customer-facing message. This function never fails.
func parseAssistantReply(raw, userMessage string, prev models.CollectedData) parsedReply {
	result := parsedReply{Message: raw, CollectedData: prev}

	cleaned := raw
	if strings.Contains(cleaned, "```") {
		cleaned = strings.TrimSpace(fenceMarkers.Replace(cleaned))
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		var decoded struct {
			Message        string               `json:"message"`
			CollectedData  models.CollectedData `json:"collected_data"`
			IsDataComplete bool                 `json:"is_data_complete"`
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &decoded); err == nil {
			if decoded.Message != "" {
				result.Message = decoded.Message
			}
			result.CollectedData = mergeCollected(prev, decoded.CollectedData)
			result.IsDataComplete = decoded.IsDataComplete
		}
	}

	// Deterministic recovery of anything the model missed.
	result.CollectedData = fallbackExtract(userMessage, result.CollectedData)

	if hasText(result.CollectedData.Phone) {
		if n := normalizePhone(*result.CollectedData.Phone); n != "" {
			result.CollectedData.Phone = &n
		}
	}

	if !hasText(result.CollectedData.Name) {
		if name := extractHonorificName(result.Message); name != "" {
			result.CollectedData.Name = &name
		}
	}

	// The model's own completeness judgment is unreliable; the server is the
	// final authority. Name + phone + request type present means complete.
	if hasText(result.CollectedData.Name) &&
		hasText(result.CollectedData.Phone) &&
		hasText(result.CollectedData.RequestType) {
		result.IsDataComplete = true
	}

	return result
}

// mergeCollected layers next over prev field by field. A known field is
// never regressed: nil or blank incoming values keep the previous value.
// The details bag merges key by key the same way.
func mergeCollected(prev, next models.CollectedData) models.CollectedData {
	out := models.CollectedData{
		Name:        mergeField(prev.Name, next.Name),
		Phone:       mergeField(prev.Phone, next.Phone),
		RequestType: mergeField(prev.RequestType, next.RequestType),
		Vehicle:     mergeField(prev.Vehicle, next.Vehicle),
		Plat:        mergeField(prev.Plat, next.Plat),
	}

	if len(prev.Details) > 0 || len(next.Details) > 0 {
		out.Details = make(map[string]any, len(prev.Details)+len(next.Details))
		for k, v := range prev.Details {
			out.Details[k] = v
		}
		for k, v := range next.Details {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			out.Details[k] = v
		}
	}

	return out
}

func mergeField(prev, next *string) *string {
	if hasText(next) {
		return next
	}
	return prev
}
