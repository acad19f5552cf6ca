package providerfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/bytefit/provider"
)

var _ provider.Provider = (*FakeProvider)(nil)

// FakeProvider is a scriptable provider. LogIn installs the token and claims
// queued with NextLogIn; LogOut clears state and returns the scripted error.
type FakeProvider struct {
	lock        sync.RWMutex
	token       string
	claims      provider.Claims
	nextToken   string
	nextClaims  provider.Claims
	logInErr    error
	logOutErr   error
	logOutCalls int
	listeners   map[int]func()
	nextID      int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{listeners: make(map[int]func())}
}

func (fp *FakeProvider) Token() string {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	return fp.token
}

func (fp *FakeProvider) Claims() provider.Claims {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	if fp.claims == nil {
		return nil
	}
	out := make(provider.Claims, len(fp.claims))
	for k, v := range fp.claims {
		out[k] = v
	}
	return out
}

// Set installs a token and claims and notifies subscribers
func (fp *FakeProvider) Set(token string, claims provider.Claims) {
	fp.lock.Lock()
	fp.token = token
	fp.claims = claims
	fp.lock.Unlock()
	fp.emit()
}

// Clear drops the token and claims and notifies subscribers
func (fp *FakeProvider) Clear() {
	fp.Set("", nil)
}

func (fp *FakeProvider) NextLogIn(token string, claims provider.Claims, err error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.nextToken = token
	fp.nextClaims = claims
	fp.logInErr = err
}

func (fp *FakeProvider) FailLogOut(err error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.logOutErr = err
}

func (fp *FakeProvider) LogOutCalls() int {
	fp.lock.RLock()
	defer fp.lock.RUnlock()
	return fp.logOutCalls
}

func (fp *FakeProvider) LogIn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fp.lock.RLock()
	token, claims, err := fp.nextToken, fp.nextClaims, fp.logInErr
	fp.lock.RUnlock()
	if err != nil {
		return err
	}
	fp.Set(token, claims)
	return nil
}

func (fp *FakeProvider) LogOut(_ context.Context) error {
	fp.lock.Lock()
	fp.logOutCalls++
	err := fp.logOutErr
	fp.lock.Unlock()
	fp.Clear()
	return err
}

func (fp *FakeProvider) Subscribe(fn func()) func() {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	id := fp.nextID
	fp.nextID++
	fp.listeners[id] = fn
	return func() {
		fp.lock.Lock()
		defer fp.lock.Unlock()
		delete(fp.listeners, id)
	}
}

func (fp *FakeProvider) emit() {
	fp.lock.RLock()
	listeners := make([]func(), 0, len(fp.listeners))
	for _, fn := range fp.listeners {
		listeners = append(listeners, fn)
	}
	fp.lock.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}
