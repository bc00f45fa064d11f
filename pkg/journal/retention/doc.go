// Package retention prunes old journal records, by age and by total
// record count, either on demand or on a cron schedule.
package retention
