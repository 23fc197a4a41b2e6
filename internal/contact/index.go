package contact

import "github.com/mmarqueti/activecampaign-mcp-server/internal/activecampaign"

// Label is a foreign key resolved against a lookup index. When the key is
// not in the index, Text holds the raw identifier and Found is false.
type Label struct {
	Text  string
	Found bool
}

// Found returns a resolved label.
func Found(text string) Label { return Label{Text: text, Found: true} }

// Unresolved returns a label that falls back to the raw identifier.
func Unresolved(raw activecampaign.ID) Label { return Label{Text: raw.String()} }

// Index maps upstream identifiers to display labels. It is built once per
// lookup response and queried for every item of the contact.
type Index map[activecampaign.ID]string

// Resolve looks up id. A nil index resolves nothing.
func (ix Index) Resolve(id activecampaign.ID) Label {
	if label, ok := ix[id]; ok {
		return Found(label)
	}
	return Unresolved(id)
}

func fieldIndex(fields []activecampaign.Field) Index {
	ix := make(Index, len(fields))
	for _, f := range fields {
		if _, dup := ix[f.ID]; !dup {
			ix[f.ID] = f.Title
		}
	}
	return ix
}

func tagIndex(tags []activecampaign.Tag) Index {
	ix := make(Index, len(tags))
	for _, t := range tags {
		if _, dup := ix[t.ID]; !dup {
			ix[t.ID] = t.Tag
		}
	}
	return ix
}

func listIndex(lists []activecampaign.List) Index {
	ix := make(Index, len(lists))
	for _, l := range lists {
		if _, dup := ix[l.ID]; !dup {
			ix[l.ID] = l.Name
		}
	}
	return ix
}
