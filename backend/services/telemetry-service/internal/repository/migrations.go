package repository

// Migrations is the ordered, idempotent schema for the telemetry store.
var Migrations = []string{
	migrationCreateVehicleCurrent,
	migrationCreateMeterCurrent,
	migrationCreateVehicleHistory,
	migrationIndexVehicleHistory,
	migrationCreateMeterHistory,
	migrationIndexMeterHistory,
	migrationCreateVehicleMeterMap,
}

const migrationCreateVehicleCurrent = `
CREATE TABLE IF NOT EXISTS vehicle_current_status (
    vehicle_id VARCHAR(255) PRIMARY KEY,
    soc DOUBLE PRECISION NOT NULL,
    battery_temp DOUBLE PRECISION NOT NULL,
    last_kwh_delivered_dc DOUBLE PRECISION NOT NULL,
    last_seen TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migrationCreateMeterCurrent = `
CREATE TABLE IF NOT EXISTS meter_current_status (
    meter_id VARCHAR(255) PRIMARY KEY,
    last_kwh_consumed_ac DOUBLE PRECISION NOT NULL,
    last_voltage DOUBLE PRECISION NOT NULL,
    last_seen TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migrationCreateVehicleHistory = `
CREATE TABLE IF NOT EXISTS vehicle_telemetry_history (
    id BIGSERIAL PRIMARY KEY,
    vehicle_id VARCHAR(255) NOT NULL,
    soc DOUBLE PRECISION NOT NULL,
    kwh_delivered_dc DOUBLE PRECISION NOT NULL,
    battery_temp DOUBLE PRECISION NOT NULL,
    timestamp TIMESTAMP WITH TIME ZONE NOT NULL
);
`

const migrationIndexVehicleHistory = `
CREATE INDEX IF NOT EXISTS idx_vehicle_history_vehicle_ts ON vehicle_telemetry_history(vehicle_id, timestamp);
`

const migrationCreateMeterHistory = `
CREATE TABLE IF NOT EXISTS meter_telemetry_history (
    id BIGSERIAL PRIMARY KEY,
    meter_id VARCHAR(255) NOT NULL,
    kwh_consumed_ac DOUBLE PRECISION NOT NULL,
    voltage DOUBLE PRECISION NOT NULL,
    timestamp TIMESTAMP WITH TIME ZONE NOT NULL
);
`

const migrationIndexMeterHistory = `
CREATE INDEX IF NOT EXISTS idx_meter_history_meter_ts ON meter_telemetry_history(meter_id, timestamp);
`

const migrationCreateVehicleMeterMap = `
CREATE TABLE IF NOT EXISTS vehicle_meter_map (
    id BIGSERIAL PRIMARY KEY,
    vehicle_id VARCHAR(255) NOT NULL,
    meter_id VARCHAR(255) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    UNIQUE (vehicle_id, meter_id)
);
`
