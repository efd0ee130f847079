package models

const (
	// DefaultPartnerAName and DefaultPartnerBName are the partner names a
	// fresh workspace starts with.
	DefaultPartnerAName = "Partner A"
	DefaultPartnerBName = "Partner B"
)

// Settings holds the workspace-wide partner names. Renaming a partner is a
// global migration: every historical transaction naming the old partner is
// rewritten to the new name.
type Settings struct {
	PartnerAName string `json:"partnerAName"`
	PartnerBName string `json:"partnerBName"`
}

// DefaultSettings returns the settings of a freshly created workspace.
func DefaultSettings() Settings {
	return Settings{
		PartnerAName: DefaultPartnerAName,
		PartnerBName: DefaultPartnerBName,
	}
}

// Has reports whether name is one of the two configured partner names.
func (s Settings) Has(name string) bool {
	return name == s.PartnerAName || name == s.PartnerBName
}

// Other returns the partner name that is not the given one. The caller must
// pass one of the two configured names.
func (s Settings) Other(name string) string {
	if name == s.PartnerAName {
		return s.PartnerBName
	}
	return s.PartnerAName
}

// Project owns an insertion-ordered sequence of transactions. Projects are
// created and deleted explicitly; deletion cascades to all transactions.
type Project struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	CreatedDate  string        `json:"createdDate"`
	Transactions []Transaction `json:"transactions"`
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Transactions = make([]Transaction, len(p.Transactions))
	copy(cp.Transactions, p.Transactions)
	return &cp
}

// Workspace is the root aggregate persisted as a single document in the
// remote store. CurrentProjectID is zero when no project is selected.
type Workspace struct {
	Projects         []*Project `json:"projects"`
	Settings         Settings   `json:"settings"`
	CurrentProjectID int64      `json:"currentProjectId,omitempty"`
}

// NewWorkspace returns the all-empty default state: no projects, default
// partner names, nothing selected.
func NewWorkspace() *Workspace {
	return &Workspace{
		Projects: []*Project{},
		Settings: DefaultSettings(),
	}
}

// Clone returns a deep copy of the workspace, safe to hand to the store or
// a subscriber while the original keeps mutating.
func (w *Workspace) Clone() *Workspace {
	cp := &Workspace{
		Projects:         make([]*Project, len(w.Projects)),
		Settings:         w.Settings,
		CurrentProjectID: w.CurrentProjectID,
	}
	for i, p := range w.Projects {
		cp.Projects[i] = p.Clone()
	}
	return cp
}

// Project returns the project with the given id, or nil.
func (w *Workspace) Project(id int64) *Project {
	for _, p := range w.Projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// CurrentProject returns the selected project, or nil if nothing is
// selected or the selection points at a project that no longer exists.
func (w *Workspace) CurrentProject() *Project {
	if w.CurrentProjectID == 0 {
		return nil
	}
	return w.Project(w.CurrentProjectID)
}
