package devprop

// Device property keys (devpkey.h).
var (
	DeviceDesc         = Key{FmtID: GUID{0xa45c254e, 0xdf1c, 0x4efd, [8]byte{0x80, 0x20, 0x67, 0xd1, 0x46, 0xa8, 0x50, 0xe0}}, PID: 2}
	DeviceFriendlyName = Key{FmtID: GUID{0xa45c254e, 0xdf1c, 0x4efd, [8]byte{0x80, 0x20, 0x67, 0xd1, 0x46, 0xa8, 0x50, 0xe0}}, PID: 14}
	DeviceInstanceID   = Key{FmtID: GUID{0x78c34fc8, 0x104a, 0x4aca, [8]byte{0x9e, 0xa4, 0x52, 0x4d, 0x52, 0x99, 0x6e, 0x57}}, PID: 256}
	DeviceIsPresent    = Key{FmtID: GUID{0x540b947e, 0x8b40, 0x45bc, [8]byte{0xa8, 0xa2, 0x6a, 0x0b, 0x89, 0x4c, 0xbd, 0xa2}}, PID: 5}
	DeviceInstallDate  = Key{FmtID: GUID{0x83da6326, 0x97a6, 0x4088, [8]byte{0x94, 0x53, 0xa1, 0x92, 0x3f, 0x57, 0x3b, 0x29}}, PID: 100}

	DeviceDriverDate    = Key{FmtID: GUID{0xa8b865dd, 0x2e3d, 0x4094, [8]byte{0xad, 0x97, 0xe5, 0x93, 0xa7, 0x0c, 0x75, 0xd6}}, PID: 2}
	DeviceDriverVersion = Key{FmtID: GUID{0xa8b865dd, 0x2e3d, 0x4094, [8]byte{0xad, 0x97, 0xe5, 0x93, 0xa7, 0x0c, 0x75, 0xd6}}, PID: 3}
	DeviceDriverInfPath = Key{FmtID: GUID{0xa8b865dd, 0x2e3d, 0x4094, [8]byte{0xad, 0x97, 0xe5, 0x93, 0xa7, 0x0c, 0x75, 0xd6}}, PID: 5}
)

// Driver-store object keys, queried through drvstore.dll against a
// driver package object.
var driverPackageFmtID = GUID{0x8163eb01, 0x142c, 0x4f7a, [8]byte{0x94, 0xe1, 0xa2, 0x74, 0xcc, 0x47, 0xdb, 0xba}}

var (
	DriverPackageOriginalInfName = Key{FmtID: driverPackageFmtID, PID: 3}
	DriverPackageProviderName    = Key{FmtID: driverPackageFmtID, PID: 4}
	DriverPackageClassName       = Key{FmtID: driverPackageFmtID, PID: 5}
	DriverPackageDriverDate      = Key{FmtID: driverPackageFmtID, PID: 6}
	DriverPackageDriverVersion   = Key{FmtID: driverPackageFmtID, PID: 7}
	DriverPackageSignerName      = Key{FmtID: driverPackageFmtID, PID: 8}
	DriverPackageInbox           = Key{FmtID: driverPackageFmtID, PID: 9}
	DriverPackageBootCritical    = Key{FmtID: driverPackageFmtID, PID: 10}
	DriverPackageExtensionID     = Key{FmtID: driverPackageFmtID, PID: 11}
	DriverPackagePublishedName   = Key{FmtID: driverPackageFmtID, PID: 12}
)
