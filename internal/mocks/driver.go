// File: internal/mocks/driver.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// -- Driver Mock --

// MockDriver mocks driver.Driver.
type MockDriver struct {
	mock.Mock
}

var _ driver.Driver = (*MockDriver)(nil)

func (m *MockDriver) Find(ctx context.Context, by driver.By, selector string, budget time.Duration) ([]driver.Handle, error) {
	args := m.Called(ctx, by, selector, budget)
	hs, _ := args.Get(0).([]driver.Handle)
	return hs, args.Error(1)
}

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDriver) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDriver) ScrollTo(ctx context.Context, x, y float64) error {
	return m.Called(ctx, x, y).Error(0)
}

func (m *MockDriver) ViewportHeight(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockDriver) Windows(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockDriver) SwitchWindow(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDriver) Alert(ctx context.Context) (driver.Alert, error) {
	args := m.Called(ctx)
	a, _ := args.Get(0).(driver.Alert)
	return a, args.Error(1)
}

func (m *MockDriver) DragAndDrop(ctx context.Context, src, dst driver.Handle) error {
	return m.Called(ctx, src, dst).Error(0)
}

func (m *MockDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Handle Mock --

// MockHandle mocks driver.Handle.
type MockHandle struct {
	mock.Mock
}

var _ driver.Handle = (*MockHandle)(nil)

func (m *MockHandle) Click(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockHandle) ClickAt(ctx context.Context, dx, dy float64) error {
	return m.Called(ctx, dx, dy).Error(0)
}

func (m *MockHandle) SendKeys(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockHandle) Clear(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockHandle) IsDisplayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockHandle) IsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockHandle) IsSelected(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockHandle) Attribute(ctx context.Context, name string) (string, bool, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockHandle) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockHandle) CSSValue(ctx context.Context, property string) (string, error) {
	args := m.Called(ctx, property)
	return args.String(0), args.Error(1)
}

func (m *MockHandle) Rect(ctx context.Context) (driver.Rect, error) {
	args := m.Called(ctx)
	return args.Get(0).(driver.Rect), args.Error(1)
}

func (m *MockHandle) ScrollIntoView(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockHandle) Hover(ctx context.Context, dx, dy float64) error {
	return m.Called(ctx, dx, dy).Error(0)
}

func (m *MockHandle) SetFiles(ctx context.Context, paths ...string) error {
	return m.Called(ctx, paths).Error(0)
}

func (m *MockHandle) SelectByText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockHandle) SetValue(ctx context.Context, value string) error {
	return m.Called(ctx, value).Error(0)
}

func (m *MockHandle) Find(ctx context.Context, by driver.By, selector string) ([]driver.Handle, error) {
	args := m.Called(ctx, by, selector)
	hs, _ := args.Get(0).([]driver.Handle)
	return hs, args.Error(1)
}

// -- Alert Mock --

// MockAlert mocks driver.Alert.
type MockAlert struct {
	mock.Mock
}

var _ driver.Alert = (*MockAlert)(nil)

func (m *MockAlert) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockAlert) Accept(ctx context.Context) error  { return m.Called(ctx).Error(0) }
func (m *MockAlert) Dismiss(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockAlert) SendKeys(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}
