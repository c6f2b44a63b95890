package app

import (
	"gorm.io/gorm"

	"github.com/phenrril/tiendamx/internal/domain"
)

var schemaStatements = []string{
	`ALTER TABLE stock DROP CONSTRAINT IF EXISTS chk_stock_cantidad`,
	`ALTER TABLE stock ADD CONSTRAINT chk_stock_cantidad CHECK (cantidad >= 0)`,
	`ALTER TABLE stock DROP CONSTRAINT IF EXISTS chk_stock_precio`,
	`ALTER TABLE stock ADD CONSTRAINT chk_stock_precio CHECK (precio IS NULL OR precio >= 0)`,
	`ALTER TABLE carrito_items DROP CONSTRAINT IF EXISTS chk_carrito_items_cantidad`,
	`ALTER TABLE carrito_items ADD CONSTRAINT chk_carrito_items_cantidad CHECK (cantidad > 0)`,

	`ALTER TABLE stock DROP CONSTRAINT IF EXISTS fk_stock_variante`,
	`ALTER TABLE stock ADD CONSTRAINT fk_stock_variante FOREIGN KEY (id_variante) REFERENCES variantes(id_variante) ON DELETE CASCADE`,
	`ALTER TABLE stock DROP CONSTRAINT IF EXISTS fk_stock_talla`,
	`ALTER TABLE stock ADD CONSTRAINT fk_stock_talla FOREIGN KEY (id_talla) REFERENCES tallas(id_talla)`,
	`ALTER TABLE tallas DROP CONSTRAINT IF EXISTS fk_tallas_sistema`,
	`ALTER TABLE tallas ADD CONSTRAINT fk_tallas_sistema FOREIGN KEY (id_sistema_talla) REFERENCES sistemas_talla(id_sistema_talla)`,
	`ALTER TABLE productos DROP CONSTRAINT IF EXISTS fk_productos_sistema`,
	`ALTER TABLE productos ADD CONSTRAINT fk_productos_sistema FOREIGN KEY (id_sistema_talla) REFERENCES sistemas_talla(id_sistema_talla)`,
	`ALTER TABLE productos DROP CONSTRAINT IF EXISTS fk_productos_categoria`,
	`ALTER TABLE productos ADD CONSTRAINT fk_productos_categoria FOREIGN KEY (id_categoria) REFERENCES categorias(id_categoria)`,
	`ALTER TABLE carrito_items DROP CONSTRAINT IF EXISTS fk_carrito_items_variante`,
	`ALTER TABLE carrito_items ADD CONSTRAINT fk_carrito_items_variante FOREIGN KEY (id_variante) REFERENCES variantes(id_variante)`,
	`ALTER TABLE carrito_items DROP CONSTRAINT IF EXISTS fk_carrito_items_talla`,
	`ALTER TABLE carrito_items ADD CONSTRAINT fk_carrito_items_talla FOREIGN KEY (id_talla) REFERENCES tallas(id_talla)`,

	// la talla tiene que pertenecer al sistema de tallas del producto
	`CREATE OR REPLACE FUNCTION stock_valida_sistema_talla() RETURNS trigger AS $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1
			FROM variantes v
			JOIN productos p ON p.id_producto = v.id_producto
			JOIN tallas t ON t.id_talla = NEW.id_talla
			WHERE v.id_variante = NEW.id_variante AND t.id_sistema_talla = p.id_sistema_talla
		) THEN
			RAISE EXCEPTION 'la talla % no pertenece al sistema de tallas de la variante %', NEW.id_talla, NEW.id_variante
				USING ERRCODE = 'check_violation';
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_stock_sistema_talla ON stock`,
	`CREATE TRIGGER trg_stock_sistema_talla BEFORE INSERT OR UPDATE ON stock
		FOR EACH ROW EXECUTE FUNCTION stock_valida_sistema_talla()`,

	// una fila sin cantidad o sin precio no se conserva
	`CREATE OR REPLACE FUNCTION stock_limpia_fila() RETURNS trigger AS $$
	BEGIN
		IF NEW.cantidad = 0 OR COALESCE(NEW.precio, 0) = 0 THEN
			DELETE FROM stock WHERE id_variante = NEW.id_variante AND id_talla = NEW.id_talla;
		END IF;
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_stock_limpieza ON stock`,
	`CREATE TRIGGER trg_stock_limpieza AFTER INSERT OR UPDATE ON stock
		FOR EACH ROW EXECUTE FUNCTION stock_limpia_fila()`,

	`CREATE INDEX IF NOT EXISTS idx_tallas_sistema_orden ON tallas (id_sistema_talla, orden)`,
	`CREATE INDEX IF NOT EXISTS idx_productos_nombre_lower ON productos (LOWER(nombre))`,
}

// Migrate crea las tablas y agrega las restricciones y triggers que
// AutoMigrate no maneja.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Category{}, &domain.SizeSystem{}, &domain.Product{}, &domain.Variant{}, &domain.Size{},
		&domain.StockEntry{}, &domain.Cart{}, &domain.CartItem{}, &domain.Order{}, &domain.OrderItem{},
	); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range schemaStatements {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
