package data

// Type identifiers carried in BaseIotData.TypeID.
const (
	DefaultTypeID = 0

	HvacActuatorType       = 1001
	HumidifierActuatorType = 1002

	HumiditySensorType = 1010
	PressureSensorType = 1012
	TempSensorType     = 1013

	LedDisplayActuatorType = 2001

	SystemPerfType = 9000
	CPUUtilType    = 9001
	DiskUtilType   = 9002
	MemUtilType    = 9003
)

// Well-known item names.
const (
	NotSet = "Not Set"

	TempSensorName     = "TempSensor"
	HumiditySensorName = "HumiditySensor"
	PressureSensorName = "PressureSensor"

	HvacActuatorName       = "HvacActuator"
	HumidifierActuatorName = "HumidifierActuator"
	LedActuatorName        = "LedActuator"

	SystemPerfName = "SystemPerfMsg"
	CPUUtilName    = "DeviceCpuUtil"
	DiskUtilName   = "DeviceDiskUtil"
	MemUtilName    = "DeviceMemUtil"

	DefaultLocationID = "constraineddevice001"
)

// Actuator commands.
const (
	CommandOff = 0
	CommandOn  = 1
)

// Status codes. Anything negative marks the item as an error.
const (
	StatusOK              = 0
	StatusUnknownActuator = -1
	StatusInvalidCommand  = -2
	StatusActuationFailed = -3
	StatusInvalidValue    = -4
)
