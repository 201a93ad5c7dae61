package globals

// FirmwareVersion is set at build time via -ldflags
var FirmwareVersion = "dev"

// Writable data directory
var DataDir = "/data"

// Firmware data
var FirmwareDataDir = DataDir + "/.firmware-data"

// Config
var ConfigPath = FirmwareDataDir + "/config.json"

// Logs
var LogsPath = FirmwareDataDir + "/logs.json"

// Boot partition, the OS reads config.txt from here on every boot
var BootDir = "/boot"

// BootConfigPath is rewritten below the dynamic content marker on a camera change
var BootConfigPath = BootDir + "/config.txt"

// BootConfigBackupPath holds the content of config.txt from before the last change
var BootConfigBackupPath = BootConfigPath + ".old"

// Firmware files living on the boot partition (user editable from a card reader)
var BootFirmwareDir = BootDir + "/openhd"

// CamConfigPath stores the currently applied camera configuration as an integer
var CamConfigPath = BootFirmwareDir + "/curr_rpi_cam_config.txt"

// CamConfigFragmentsDir contains one fragment per camera configuration and board
var CamConfigFragmentsDir = BootFirmwareDir + "/configs"

// WifiManifestPath is rewritten after every wifi card discovery
var WifiManifestPath = "/tmp/wifi_manifest"

// SysClassNetDir lists the network interfaces known to the kernel
var SysClassNetDir = "/sys/class/net"

// DeviceTreeModelPath names the board on ARM hosts
var DeviceTreeModelPath = "/proc/device-tree/model"

// TegraReleasePath only exists on Jetson images
var TegraReleasePath = "/etc/nv_tegra_release"

// SetRoot re-roots every filesystem path, used for images mounted elsewhere
func SetRoot(root string) {
	if root == "" || root == "/" {
		return
	}
	for _, p := range []*string{
		&DataDir, &FirmwareDataDir, &ConfigPath, &LogsPath,
		&BootDir, &BootConfigPath, &BootConfigBackupPath, &BootFirmwareDir,
		&CamConfigPath, &CamConfigFragmentsDir, &WifiManifestPath,
		&SysClassNetDir, &DeviceTreeModelPath, &TegraReleasePath,
	} {
		*p = root + *p
	}
}
