package service

import (
	"admin-console/internal/apiclient"
	"admin-console/internal/audit"
	"admin-console/internal/authstore"
	"admin-console/internal/config"

	"go.uber.org/zap"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg          *config.Config
	api          *apiclient.Client
	store        authstore.Store
	recorder     *audit.Recorder
	throttle     Throttle
	users        UserSearcher
	reports      AuditReporter
	logger       *zap.Logger
	loginService *LoginService
	adminService *AdminService
}

// NewServiceFactory creates a new service factory. throttle, users and
// reports may be nil.
func NewServiceFactory(
	cfg *config.Config,
	api *apiclient.Client,
	store authstore.Store,
	recorder *audit.Recorder,
	throttle Throttle,
	users UserSearcher,
	reports AuditReporter,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:      cfg,
		api:      api,
		store:    store,
		recorder: recorder,
		throttle: throttle,
		users:    users,
		reports:  reports,
		logger:   logger,
	}
}

// LoginService returns the login service instance (singleton)
func (f *ServiceFactory) LoginService() *LoginService {
	if f.loginService == nil {
		var opts []LoginOption
		if f.throttle != nil {
			opts = append(opts, WithThrottle(f.throttle))
		}
		f.loginService = NewLoginService(f.api, f.store, f.recorder, f.cfg.Login, f.logger, opts...)
	}
	return f.loginService
}

// AdminService returns the admin service instance (singleton)
func (f *ServiceFactory) AdminService() *AdminService {
	if f.adminService == nil {
		f.adminService = NewAdminService(f.api, f.recorder, f.users, f.reports, f.logger)
	}
	return f.adminService
}

// Cleanup cleans up all services
func (f *ServiceFactory) Cleanup() {
	if f.loginService != nil {
		f.loginService.Close()
	}
}
