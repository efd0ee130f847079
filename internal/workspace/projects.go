package workspace

import (
	"context"
	"strings"
	"time"

	"github.com/magpsaad/partner-calculator/internal/models"
)

// CreateProject adds a named project, selects it, and saves. Ids are
// strictly increasing even under rapid successive calls.
func (c *Controller) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.Validationf("name", "project name must not be empty")
	}

	project := &models.Project{
		ID:           c.ids.Next(),
		Name:         name,
		CreatedDate:  time.Now().Format("2006-01-02"),
		Transactions: []models.Transaction{},
	}

	c.mu.Lock()
	c.state.Projects = append(c.state.Projects, project)
	c.state.CurrentProjectID = project.ID
	c.mu.Unlock()

	c.logger.Info("Project created", "project_id", project.ID, "name", name)
	if err := c.save(ctx); err != nil {
		return project.Clone(), err
	}
	return project.Clone(), nil
}

// RenameProject changes a project's name. ErrNotFound if the id is absent.
func (c *Controller) RenameProject(ctx context.Context, id int64, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return models.Validationf("name", "project name must not be empty")
	}

	c.mu.Lock()
	p := c.state.Project(id)
	if p == nil {
		c.mu.Unlock()
		return models.ErrNotFound
	}
	p.Name = newName
	c.mu.Unlock()

	return c.save(ctx)
}

// DeleteProject removes a project and all its transactions. If it was the
// selected project the selection clears. ErrNotFound if the id is absent.
func (c *Controller) DeleteProject(ctx context.Context, id int64) error {
	c.mu.Lock()
	idx := -1
	for i, p := range c.state.Projects {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return models.ErrNotFound
	}
	c.state.Projects = append(c.state.Projects[:idx], c.state.Projects[idx+1:]...)
	if c.state.CurrentProjectID == id {
		c.state.CurrentProjectID = 0
	}
	c.mu.Unlock()

	c.logger.Info("Project deleted", "project_id", id)
	return c.save(ctx)
}

// SelectProject makes the given project current and persists the selection
// so other clients follow. Passing id 0 clears the selection.
func (c *Controller) SelectProject(ctx context.Context, id int64) error {
	c.mu.Lock()
	if id != 0 && c.state.Project(id) == nil {
		c.mu.Unlock()
		return models.ErrNotFound
	}
	c.state.CurrentProjectID = id
	c.mu.Unlock()

	return c.save(ctx)
}

// Projects returns deep copies of all projects in insertion order.
func (c *Controller) Projects() []*models.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Project, len(c.state.Projects))
	for i, p := range c.state.Projects {
		out[i] = p.Clone()
	}
	return out
}

// CurrentProject returns a copy of the selected project, or nil when no
// project is selected.
func (c *Controller) CurrentProject() *models.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.state.CurrentProject()
	if p == nil {
		return nil
	}
	return p.Clone()
}
