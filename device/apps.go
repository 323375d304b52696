// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

package device

import (
	"context"
	"strconv"

	"github.com/soothill/roku-ecp/ecpxml"
	"github.com/soothill/roku-ecp/pkg/errors"
)

// App is an installed channel. Icon stays nil until FetchAppIcon is called.
type App struct {
	ID      int32
	Type    string
	Version string
	Name    string
	Icon    []byte
}

// GetInstalledApps fetches query/apps in device order
func (d *Device) GetInstalledApps(ctx context.Context) ([]App, error) {
	body, err := d.transport.Get(ctx, d.Host(), "query/apps", QueryTimeout)
	if err != nil {
		return nil, err
	}

	elements, err := ecpxml.Apps(body)
	if err != nil {
		return nil, err
	}

	apps := make([]App, 0, len(elements))
	for _, el := range elements {
		app, err := toApp(el)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// LaunchAppByID starts an app, waking the device first if it does not answer.
func (d *Device) LaunchAppByID(ctx context.Context, id int32) (bool, error) {
	endpoint := "launch/" + strconv.FormatInt(int64(id), 10)
	if _, err := d.transport.WakingPost(ctx, d.Host(), d.WakeMAC(), endpoint, QueryTimeout); err != nil {
		return false, err
	}
	return true, nil
}

// FetchAppIcon downloads the icon of app into app.Icon
func (d *Device) FetchAppIcon(ctx context.Context, app *App) error {
	endpoint := "query/icon/" + strconv.FormatInt(int64(app.ID), 10)
	body, err := d.transport.Get(ctx, d.Host(), endpoint, QueryTimeout)
	if err != nil {
		return err
	}
	app.Icon = []byte(body)
	return nil
}

// GetActiveApp returns the app in the foreground, or nil on the home screen.
func (d *Device) GetActiveApp(ctx context.Context) (*App, error) {
	body, err := d.transport.Get(ctx, d.Host(), "query/active-app", QueryTimeout)
	if err != nil {
		return nil, err
	}

	elements, err := ecpxml.Apps(body)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 || elements[0].ID == "" {
		return nil, nil
	}

	app, err := toApp(elements[0])
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func toApp(el ecpxml.AppElement) (App, error) {
	id, err := strconv.ParseInt(el.ID, 10, 32)
	if err != nil {
		return App{}, errors.NewParseError("apps", "id", err)
	}
	return App{
		ID:      int32(id),
		Type:    el.Type,
		Version: el.Version,
		Name:    el.Name,
	}, nil
}
