package app

import (
	"fmt"

	"echomechanic/pkg/domain"
)

// MachineInput carries a machine registration.
type MachineInput struct {
	Email       string
	Name        string
	Brand       string
	Model       string
	Category    string
	InstallDate string
}

// MachineView is one registered machine as returned by the listing endpoint.
type MachineView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Category    string `json:"category"`
	InstallDate string `json:"install_date"`
}

// AddMachine registers equipment under the user's account.
func (a *App) AddMachine(in MachineInput) (MachineView, error) {
	id, err := a.store.AddMachine(domain.Machine{
		UserEmail:   normalizeEmail(in.Email),
		Name:        in.Name,
		Brand:       in.Brand,
		Model:       in.Model,
		Category:    in.Category,
		InstallDate: in.InstallDate,
	})
	if err != nil {
		return MachineView{}, fmt.Errorf("add machine: %w", err)
	}
	return MachineView{
		ID:          id,
		Name:        in.Name,
		Brand:       in.Brand,
		Model:       in.Model,
		Category:    in.Category,
		InstallDate: in.InstallDate,
	}, nil
}

// ListMachines returns the user's registered machines.
func (a *App) ListMachines(email string) ([]MachineView, error) {
	machines, err := a.store.ListMachinesByUser(normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	views := make([]MachineView, 0, len(machines))
	for _, m := range machines {
		views = append(views, MachineView{
			ID:          m.ID,
			Name:        m.Name,
			Brand:       m.Brand,
			Model:       m.Model,
			Category:    m.Category,
			InstallDate: m.InstallDate,
		})
	}
	return views, nil
}
