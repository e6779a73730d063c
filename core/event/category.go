package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the closed set of event kinds. On disk and on the wire a
// category is written as its short form.
type Category uint8

const (
	CategoryLog Category = iota + 1
	CategoryClear
	CategoryWaitBegin
	CategoryWaitEnd
	CategorySetupBegin
	CategoryScriptBegin
	CategorySection
	CategorySectionWithoutWait
	CategoryReminder
	CategorySetupEnd
	CategoryScriptEnd
	CategoryError
	CategoryInfoBox
	CategoryInfoBoxWithoutWait
	CategorySummary
)

var allCategories = []Category{
	CategoryLog,
	CategoryClear,
	CategoryWaitBegin,
	CategoryWaitEnd,
	CategorySetupBegin,
	CategoryScriptBegin,
	CategorySection,
	CategorySectionWithoutWait,
	CategoryReminder,
	CategorySetupEnd,
	CategoryScriptEnd,
	CategoryError,
	CategoryInfoBox,
	CategoryInfoBoxWithoutWait,
	CategorySummary,
}

// Categories returns every category in declaration order.
func Categories() []Category {
	return append([]Category(nil), allCategories...)
}

// ShortForm returns the compact code persisted in the `c` field, or "" for
// an invalid category.
func (c Category) ShortForm() string {
	switch c {
	case CategoryLog:
		return "L"
	case CategoryClear:
		return "C"
	case CategoryWaitBegin:
		return "WB"
	case CategoryWaitEnd:
		return "WE"
	case CategorySetupBegin:
		return "UB"
	case CategoryScriptBegin:
		return "SB"
	case CategorySection:
		return "S"
	case CategorySectionWithoutWait:
		return "SW"
	case CategoryReminder:
		return "R"
	case CategorySetupEnd:
		return "UE"
	case CategoryScriptEnd:
		return "SE"
	case CategoryError:
		return "E"
	case CategoryInfoBox:
		return "I"
	case CategoryInfoBoxWithoutWait:
		return "IW"
	case CategorySummary:
		return "SY"
	default:
		return ""
	}
}

// Name returns the long camel-case name used by the CLI and diagnostics.
func (c Category) Name() string {
	switch c {
	case CategoryLog:
		return "log"
	case CategoryClear:
		return "clear"
	case CategoryWaitBegin:
		return "waitBegin"
	case CategoryWaitEnd:
		return "waitEnd"
	case CategorySetupBegin:
		return "setupBegin"
	case CategoryScriptBegin:
		return "scriptBegin"
	case CategorySection:
		return "section"
	case CategorySectionWithoutWait:
		return "sectionWW"
	case CategoryReminder:
		return "reminder"
	case CategorySetupEnd:
		return "setupEnd"
	case CategoryScriptEnd:
		return "scriptEnd"
	case CategoryError:
		return "error"
	case CategoryInfoBox:
		return "infoBox"
	case CategoryInfoBoxWithoutWait:
		return "infoBoxWW"
	case CategorySummary:
		return "summary"
	default:
		return ""
	}
}

func (c Category) String() string {
	if name := c.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

func (c Category) Valid() bool {
	return c.ShortForm() != ""
}

// IsWait reports the wait control markers, which carry no message.
func (c Category) IsWait() bool {
	return c == CategoryWaitBegin || c == CategoryWaitEnd
}

func (c Category) IsBegin() bool {
	return c == CategorySetupBegin || c == CategoryScriptBegin
}

func (c Category) IsEnd() bool {
	return c == CategorySetupEnd || c == CategoryScriptEnd
}

// ForcesFlush reports categories whose recording bypasses the telemetry
// debounce gate. sectionWithoutWait is batched like any other progress event.
func (c Category) ForcesFlush() bool {
	switch c {
	case CategorySection, CategoryError:
		return true
	}
	return c.IsBegin() || c.IsEnd()
}

// ParseShortForm decodes a persisted `c` value.
func ParseShortForm(value string) (Category, error) {
	for _, category := range allCategories {
		if category.ShortForm() == value {
			return category, nil
		}
	}
	return 0, fmt.Errorf("unknown category short form %q", value)
}

// Parse accepts a long name (case-insensitive) or a short form.
func Parse(value string) (Category, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("category is required")
	}
	for _, category := range allCategories {
		if strings.EqualFold(category.Name(), trimmed) || category.ShortForm() == trimmed {
			return category, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", value)
}

func (c Category) MarshalJSON() ([]byte, error) {
	short := c.ShortForm()
	if short == "" {
		return nil, fmt.Errorf("marshal invalid category %d", uint8(c))
	}
	return json.Marshal(short)
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var short string
	if err := json.Unmarshal(data, &short); err != nil {
		return fmt.Errorf("category must be a string: %w", err)
	}
	parsed, err := ParseShortForm(short)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
