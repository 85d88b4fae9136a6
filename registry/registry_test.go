package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	unsplash "github.com/halo-sigs/plugin-unsplash"
	"github.com/halo-sigs/plugin-unsplash/interfaces"
	"github.com/halo-sigs/plugin-unsplash/registry"
)

type nopComponent struct{}

func (nopComponent) Mount(context.Context, interfaces.SelectHandler) (interfaces.SelectorInstance, error) {
	return nil, nil
}

func localPlugin() interfaces.PluginDefinition {
	return interfaces.PluginDefinition{
		Name: "local-media",
		ExtensionPoints: interfaces.ExtensionPoints{
			AttachmentSelector: func(state *interfaces.AttachmentSelectorPublicState) {
				state.Providers = append(state.Providers, interfaces.ProviderRegistration{ID: "local", Label: "Local"})
			},
		},
	}
}

func providerIDs(providers []interfaces.ProviderRegistration) []string {
	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestActivationLifecycle(t *testing.T) {
	var calls []string
	reg := registry.New(nil)

	def := unsplash.ConsolePlugin(nopComponent{},
		unsplash.OnActivated(func() { calls = append(calls, "activated") }),
		unsplash.OnDeactivated(func() { calls = append(calls, "deactivated") }),
	)
	if err := reg.Install(localPlugin()); err != nil {
		t.Fatal(err)
	}
	if err := reg.Install(def); err != nil {
		t.Fatal(err)
	}

	if got := reg.AttachmentSelectorProviders(); len(got) != 0 {
		t.Fatalf("inactive plugins contributed providers %v", providerIDs(got))
	}

	for _, name := range []string{"local-media", "PluginUnsplash"} {
		if err := reg.Activate(name); err != nil {
			t.Fatalf("Activate(%s) error = %v", name, err)
		}
	}
	// Activating twice does not register twice.
	if err := reg.Activate("PluginUnsplash"); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"local", "unsplash"}, providerIDs(reg.AttachmentSelectorProviders())); diff != "" {
		t.Errorf("providers mismatch (-want +got):\n%s", diff)
	}
	provider, ok := reg.Provider("unsplash")
	if !ok || provider.Label != "Unsplash" {
		t.Errorf("Provider(unsplash) = %+v, %v", provider, ok)
	}

	if err := reg.Deactivate("PluginUnsplash"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"local"}, providerIDs(reg.AttachmentSelectorProviders())); diff != "" {
		t.Errorf("providers after deactivate mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"activated", "deactivated"}, calls); diff != "" {
		t.Errorf("hook calls mismatch (-want +got):\n%s", diff)
	}
}

func TestInstallErrors(t *testing.T) {
	reg := registry.New(nil)
	if err := reg.Install(localPlugin()); err != nil {
		t.Fatal(err)
	}
	if err := reg.Install(localPlugin()); !errors.Is(err, registry.ErrAlreadyInstalled) {
		t.Errorf("second Install() err = %v", err)
	}
	if err := reg.Activate("missing"); !errors.Is(err, registry.ErrNotInstalled) {
		t.Errorf("Activate(missing) err = %v", err)
	}
}

func TestUninstall(t *testing.T) {
	reg := registry.New(nil)
	reg.Install(localPlugin())
	reg.Activate("local-media")

	if err := reg.Uninstall("local-media"); err != nil {
		t.Fatal(err)
	}
	if len(reg.Plugins()) != 0 || reg.IsActive("local-media") {
		t.Errorf("plugin still installed: %v", reg.Plugins())
	}
}

func TestAdminContributions(t *testing.T) {
	reg := registry.New(nil)
	reg.Install(unsplash.AdminPlugin())
	reg.Install(interfaces.PluginDefinition{
		Name:  "other",
		Menus: []interfaces.MenuGroup{{Name: "From PluginUnsplash", Items: []interfaces.MenuItem{{Name: "Other", Path: "/other"}}}},
	})

	if len(reg.Routes()) != 0 {
		t.Fatal("inactive plugin contributed routes")
	}
	reg.Activate("PluginUnsplash")
	reg.Activate("other")

	routes := reg.Routes()
	if len(routes) != 1 || routes[0].Path != "/hello-world" || routes[0].Children[0].Name != "HelloWorld" {
		t.Errorf("unexpected routes %+v", routes)
	}

	want := []interfaces.MenuGroup{{
		Name: "From PluginUnsplash",
		Items: []interfaces.MenuItem{
			{Name: "HelloWorld", Path: "/hello-world", Icon: "IconGrid"},
			{Name: "Other", Path: "/other"},
		},
	}}
	if diff := cmp.Diff(want, reg.Menus(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("menus mismatch (-want +got):\n%s", diff)
	}
	if len(reg.AttachmentSelectorProviders()) != 0 {
		t.Error("admin plugin contributed an attachment selector provider")
	}
}
