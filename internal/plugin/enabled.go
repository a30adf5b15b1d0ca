package plugin

import (
	"github.com/dshills/appshell/internal/setting"
)

// EnabledExtensionsKey is the setting holding the enabled module ids.
const EnabledExtensionsKey = "application/enabledExtensions"

// EnabledExtensionsSetting persists the ids of the enabled modules.
// It has no display name, so it is not shown in the settings surface.
type EnabledExtensionsSetting struct {
	*setting.Base
	service *setting.Service
}

// NewEnabledExtensionsSetting creates the setting backed by svc.
func NewEnabledExtensionsSetting(svc *setting.Service) *EnabledExtensionsSetting {
	return &EnabledExtensionsSetting{
		Base:    setting.NewBase(EnabledExtensionsKey, "", "", []string{}),
		service: svc,
	}
}

// ReadList returns the stored ids, or an empty list when none are stored.
func (s *EnabledExtensionsSetting) ReadList() []string {
	return s.service.Strings(EnabledExtensionsKey, []string{})
}

// WriteList stores ids and syncs the store.
func (s *EnabledExtensionsSetting) WriteList(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	if err := s.service.SetValue(EnabledExtensionsKey, ids); err != nil {
		return err
	}
	return s.service.Sync()
}

// PersistEnabled writes the ids of the enabled modules to es. Call it when
// the management surface closes.
func (s *Service) PersistEnabled(es *EnabledExtensionsSetting) error {
	ids := s.modules.EnabledIDs()
	if err := es.WriteList(ids); err != nil {
		return err
	}
	s.logger.Debug("persisted %d enabled modules", len(ids))
	return nil
}
