package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// imageSitePackages is where the service images keep the st2 python
// packages; dev checkouts are mounted over them at runtime.
const imageSitePackages = "/opt/stackstorm/st2/lib/python3.6/site-packages"

// devMountedServices are the services whose code can be injected from a
// local checkout.
var devMountedServices = []string{
	"st2api",
	"st2reactor",
	"st2rulesengine",
	"st2common",
	"st2client",
}

// DevMounts maps each injectable service to a mount string that overlays the
// local checkout onto the image's installed copy. The released compose file
// runs released bits only; mounting uncommitted code over them avoids
// maintaining a second, dev-only compose file.
func DevMounts(st2Path string) (map[string]string, error) {
	devPath, err := filepath.Abs(st2Path)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(filepath.Join(devPath, "st2api")); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s should be the root of the st2 repo", devPath)
	}

	mounts := make(map[string]string, len(devMountedServices))
	for _, service := range devMountedServices {
		mounts[service] = fmt.Sprintf("%s/%s/%s:%s/%s",
			devPath, service, service, imageSitePackages, service)
	}
	return mounts, nil
}
