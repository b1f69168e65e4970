package driver

func (d *driver) Ping() error {
	d.logger.Debug("Starting ping to server")

	conn, err := d.pool.Get()
	defer d.pool.Put(conn, err)
	if err != nil {
		d.logger.Error("Ping failed: unable to get connection", "error", err)
		return err
	}

	if _, err = d.prepare(conn); err != nil {
		d.logger.Error("Ping failed: bolt session setup", "error", err)
		return err
	}

	d.logger.Debug("Ping successful")
	return nil
}
