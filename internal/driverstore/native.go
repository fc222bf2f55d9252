package driverstore

import (
	"strings"

	"github.com/breeze-rmm/drvstore/internal/devprop"
	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/logging"
)

// propertyGetter reads one driver-package property; ok is false when the
// value is absent.
type propertyGetter func(key devprop.Key) (devprop.Value, bool)

// nativeRecord builds a record from typed driver-store properties. The
// location is not resolved here.
func nativeRecord(publishedName string, get propertyGetter) driverpkg.PackageRecord {
	rec := driverpkg.PackageRecord{PublishedName: publishedName}

	if rec.PublishedName == "" {
		if v, ok := get(devprop.DriverPackagePublishedName); ok {
			rec.PublishedName = v.String
		}
	}
	if v, ok := get(devprop.DriverPackageProviderName); ok {
		rec.Provider = v.String
	}
	if v, ok := get(devprop.DriverPackageClassName); ok {
		rec.Class = v.String
	}
	if v, ok := get(devprop.DriverPackageDriverDate); ok {
		rec.Date = v.Time
	}
	if v, ok := get(devprop.DriverPackageDriverVersion); ok {
		rec.Version = devprop.DecodeVersion(v.Uint)
	}
	if v, ok := get(devprop.DriverPackageSignerName); ok {
		rec.SignerName = v.String
	}
	if v, ok := get(devprop.DriverPackageInbox); ok {
		rec.Inbox = v.Bool
	}
	if v, ok := get(devprop.DriverPackageBootCritical); ok {
		rec.BootCritical = driverpkg.TriStateOf(v.Bool)
	}
	if v, ok := get(devprop.DriverPackageExtensionID); ok {
		switch v.Type.Base() {
		case devprop.TypeGUID:
			if v.GUID != (devprop.GUID{}) {
				rec.ExtensionID = v.GUID.String()
			}
		case devprop.TypeString:
			rec.ExtensionID = v.String
		}
	}
	return rec
}

// checkOriginalName compares the INF name taken from the store path with the
// package's own original-name property. On a mismatch the location is
// dropped, since Delete addresses the package by folder and that name.
func checkOriginalName(rec driverpkg.PackageRecord, get propertyGetter) driverpkg.PackageRecord {
	if !rec.Resolved() {
		return rec
	}
	v, ok := get(devprop.DriverPackageOriginalInfName)
	if !ok || v.String == "" || strings.EqualFold(v.String, rec.OriginalInfName) {
		return rec
	}
	log.Warn("store path disagrees with original INF name",
		logging.KeyPublishedName, rec.PublishedName, "path", rec.OriginalInfName, "property", v.String)
	return rec.WithLocation("", "", 0)
}
