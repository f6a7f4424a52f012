package domain

import (
	"sort"
	"strings"
)

const workflowTypeSuffix = "Workflow"

// Color classes returned by StatusColor
const (
	ColorInfo    = "info"
	ColorWarning = "warning"
	ColorSuccess = "success"
	ColorDanger  = "danger"
	ColorMuted   = "muted"
	ColorNeutral = "neutral"
)

var statusLabels = map[WorkflowStatus]string{
	WorkflowStatusPending:         "En attente",
	WorkflowStatusQueued:          "En file",
	WorkflowStatusRunning:         "En cours",
	WorkflowStatusCompleted:       "Terminé",
	WorkflowStatusFailed:          "Échoué",
	WorkflowStatusCancelled:       "Annulé",
	WorkflowStatusCanceled:        "Annulé",
	WorkflowStatusCancelRequested: "Annulation demandée",
	WorkflowStatusTerminated:      "Interrompu",
	WorkflowStatusTimedOut:        "Expiré",
}

var statusColors = map[WorkflowStatus]string{
	WorkflowStatusPending:         ColorWarning,
	WorkflowStatusQueued:          ColorWarning,
	WorkflowStatusRunning:         ColorInfo,
	WorkflowStatusCompleted:       ColorSuccess,
	WorkflowStatusFailed:          ColorDanger,
	WorkflowStatusTimedOut:        ColorDanger,
	WorkflowStatusTerminated:      ColorDanger,
	WorkflowStatusCancelled:       ColorMuted,
	WorkflowStatusCanceled:        ColorMuted,
	WorkflowStatusCancelRequested: ColorMuted,
}

var actionLabels = map[string]string{
	"publish":       "Publication",
	"import":        "Import",
	"sync":          "Synchronisation",
	"orderssync":    "Sync commandes",
	"inventorysync": "Sync inventaire",
	"pricesync":     "Sync prix",
	"update":        "Mise à jour",
	"delete":        "Suppression",
	"relist":        "Republication",
}

// StatusLabel returns the display label of a status. Unknown statuses are returned
// unchanged so new engine statuses still render.
func StatusLabel(status string) string {
	if label, ok := statusLabels[WorkflowStatus(strings.ToLower(status))]; ok {
		return label
	}
	return status
}

// StatusColor returns the color class of a status, ColorNeutral when unknown
func StatusColor(status string) string {
	if color, ok := statusColors[WorkflowStatus(strings.ToLower(status))]; ok {
		return color
	}
	return ColorNeutral
}

// Labeler derives action labels from workflow type names using the known platform prefixes.
type Labeler struct {
	platforms []Platform
}

func NewLabeler(platforms []Platform) *Labeler {
	sorted := make([]Platform, 0, len(platforms))
	for _, platform := range platforms {
		if platform.TypePrefix != "" {
			sorted = append(sorted, platform)
		}
	}

	// longest prefix wins when prefixes overlap
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].TypePrefix) > len(sorted[j].TypePrefix)
	})

	return &Labeler{platforms: sorted}
}

// PlatformOf returns the platform whose prefix starts the workflow type
func (l *Labeler) PlatformOf(workflowType string) (Platform, bool) {
	workflowType = strings.TrimSpace(workflowType)

	for _, platform := range l.platforms {
		if hasPrefixFold(workflowType, platform.TypePrefix) {
			return platform, true
		}
	}
	return Platform{}, false
}

// ActionKey strips the platform prefix and the Workflow suffix and lower-cases the rest:
// "VintedPublishWorkflow" gives "publish". When nothing is left the whole type is
// lower-cased instead.
func (l *Labeler) ActionKey(workflowType string) string {
	trimmed := strings.TrimSpace(workflowType)
	rest := trimmed

	if platform, ok := l.PlatformOf(rest); ok {
		rest = rest[len(platform.TypePrefix):]
	}

	if hasSuffixFold(rest, workflowTypeSuffix) {
		rest = rest[:len(rest)-len(workflowTypeSuffix)]
	}

	if rest == "" {
		return strings.ToLower(trimmed)
	}
	return strings.ToLower(rest)
}

// ActionLabel maps the action key of a workflow type to its display label, falling
// back to the action key itself.
func (l *Labeler) ActionLabel(workflowType string) string {
	key := l.ActionKey(workflowType)
	if label, ok := actionLabels[key]; ok {
		return label
	}
	return key
}

// PlatformName returns the display name of the workflow's platform, or "" when the
// type carries no known prefix.
func (l *Labeler) PlatformName(workflowType string) string {
	platform, ok := l.PlatformOf(workflowType)
	if !ok {
		return ""
	}
	return platform.Name
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
