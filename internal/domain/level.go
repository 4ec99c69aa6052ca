package domain

// Level identifies one tier of the inventory hierarchy.
type Level string

func (l Level) String() string {
	return string(l)
}

const (
	// LevelRoot is the virtual parent of all category nodes. It is never
	// rendered and never persisted.
	LevelRoot Level = "root"

	LevelCategory    Level = "category"
	LevelSubcategory Level = "subcategory"
	LevelCommonName  Level = "common_name"
	LevelItem        Level = "item"
)

// Levels lists the renderable tiers, outermost first.
var Levels = []Level{
	LevelCategory,
	LevelSubcategory,
	LevelCommonName,
	LevelItem,
}

// ParseLevel maps a configuration name onto a renderable tier.
func ParseLevel(name string) (Level, bool) {
	switch Level(name) {
	case LevelCategory, LevelSubcategory, LevelCommonName, LevelItem:
		return Level(name), true
	default:
		return "", false
	}
}

func (l Level) DisplayName() string {
	switch l {
	case LevelCategory:
		return "Category"
	case LevelSubcategory:
		return "Subcategory"
	case LevelCommonName:
		return "Common Name"
	case LevelItem:
		return "Item"
	default:
		return "Unknown"
	}
}

// ChildLevel returns the tier of a node's children, or "" for leaf items.
func (l Level) ChildLevel() Level {
	switch l {
	case LevelRoot:
		return LevelCategory
	case LevelCategory:
		return LevelSubcategory
	case LevelSubcategory:
		return LevelCommonName
	case LevelCommonName:
		return LevelItem
	default:
		return ""
	}
}

func (l Level) ParentLevel() Level {
	switch l {
	case LevelCategory:
		return LevelRoot
	case LevelSubcategory:
		return LevelCategory
	case LevelCommonName:
		return LevelSubcategory
	case LevelItem:
		return LevelCommonName
	default:
		return ""
	}
}

// Expandable reports whether nodes at this tier own a child section.
func (l Level) Expandable() bool {
	return l.ChildLevel() != ""
}
